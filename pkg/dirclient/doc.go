// Package dirclient provides the primary entry point for constructing a
// Directus REST API client that implements the directus.Client interface.
//
// It layers configuration, HTTP transport, and session management on top of
// the resource interfaces and types defined in the directus package. Most
// applications should import dirclient to build a client, then use the
// returned directus.Client to access the resource clients: Items(collection),
// Files(), Folders() and Activity().
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/directus-client/pkg/directus"
//	  "github.com/fivetwenty-io/directus-client/pkg/dirclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // With a static token provisioned in the Directus admin app:
//	  cli, err := dirclient.NewWithToken(ctx, "https://cms.example.com", "static-token")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with an e-mail and password; the first request logs in:
//	  cli, err = dirclient.New(ctx, &directus.Config{
//	    Hostname: "https://cms.example.com",
//	    Username: "admin@example.com",
//	    Password: "secret",
//	    TLSVerify: true,
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  files, err := cli.Files().List(ctx, directus.NewQuery().WithSearch("logo"))
//	  if err != nil { log.Fatal(err) }
//	  _ = files
//	}
//
// Resuming a session
//
// A CLI or a short lived worker can persist the SessionToken handed to a
// directus.TokenPersister and resume it later with NewWithSession. The resumed
// session is renewed through the refresh token only.
//
// Configuration errors are returned before any network activity; see the
// directus package for the complete error taxonomy.
package dirclient
