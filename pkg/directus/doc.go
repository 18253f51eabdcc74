// Package directus provides types, interfaces, and helpers for working with the
// Directus REST API.
//
// # Overview
//
// The directus package defines the record types (Item, File, Folder, Activity),
// the query model (Query, Filter, DeepQuery), the error taxonomy, and the
// interfaces of the resource clients. A concrete implementation is provided by
// the dirclient package, which wires configuration, transport, and the session
// manager. Most consumers should import dirclient to construct a client and then
// use the interfaces exposed here.
//
// Getting a client
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
//	  cli, err := dirclient.New(ctx, &directus.Config{
//	    Hostname: "https://cms.example.com",
//	    Username: "admin@example.com",
//	    Password: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  query := directus.NewQuery().
//	    WithFields("id", "title").
//	    WithFilter(directus.Field("age", directus.OpGt, 18)).
//	    WithLimit(10)
//
//	  articles, err := cli.Items("articles").List(ctx, query)
//	  if err != nil { log.Fatal(err) }
//	  _ = articles
//	}
//
// # Authentication
//
// A client authenticates either with a static token or with an e-mail and
// password. In the latter case the first request logs in and later requests
// reuse the access token until it expires, at which point it is renewed with
// the refresh token. Concurrent requests share a single login or refresh.
//
// # Errors
//
// Construction problems are reported as *ConfigurationError, identity endpoint
// failures as *AuthenticationError, and network failures as *TransportError.
// Resource calls that complete with a non-2xx status return *ResourceError with
// the "errors" envelope sent by the server. Helpers such as IsNotFound,
// IsUnauthorized, and IsForbidden make it easy to branch on common cases.
package directus
