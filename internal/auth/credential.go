package auth

import (
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// Credential is the closed set of ways a client can authenticate.
// The implementations are StaticCredential, PasswordCredential and SessionCredential.
type Credential interface {
	credential()
}

// StaticCredential is a pre-provisioned token that never expires.
type StaticCredential struct {
	Token string
}

// PasswordCredential logs in through /auth/login and renews through /auth/refresh.
type PasswordCredential struct {
	Email    string
	Password string
}

// SessionCredential resumes a session persisted by an earlier process. It can
// only be renewed through /auth/refresh.
type SessionCredential struct {
	Token directus.SessionToken
}

func (StaticCredential) credential()   {}
func (PasswordCredential) credential() {}
func (SessionCredential) credential()  {}

// CredentialFromConfig selects the credential described by the client options.
// Exactly one of staticToken or the username/password pair must be set.
func CredentialFromConfig(staticToken, username, password string) (Credential, error) {
	hasStatic := staticToken != ""
	hasUser := username != "" || password != ""

	switch {
	case hasStatic && hasUser:
		return nil, &directus.ConfigurationError{Err: directus.ErrAmbiguousCredentials}
	case hasStatic:
		return StaticCredential{Token: staticToken}, nil
	case username != "" && password != "":
		return PasswordCredential{Email: username, Password: password}, nil
	case hasUser:
		return nil, &directus.ConfigurationError{Err: directus.ErrIncompleteCredentials}
	default:
		return nil, &directus.ConfigurationError{Err: directus.ErrNoCredentials}
	}
}
