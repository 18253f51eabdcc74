package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/fivetwenty-io/directus-client/internal/client"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forbiddenBody = `{"errors":[{"message":"You don't have permission to access this.","extensions":{"code":"FORBIDDEN"}}]}`

// newTestClient starts a server with handler and returns a client authenticated with a static token.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(context.Background(), &directus.Config{
		Hostname:    server.URL,
		StaticToken: "test-token",
	})
	require.NoError(t, err)

	return client
}

// respond checks the method and path of each call and replies with status and body.
func respond(t *testing.T, method, path string, status int, body string) http.HandlerFunc {
	t.Helper()

	return func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, method, request.Method)
		assert.Equal(t, path, request.URL.Path)
		assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))

		if body != "" {
			writer.Header().Set("Content-Type", "application/json")
		}

		writer.WriteHeader(status)

		if body != "" {
			_, _ = writer.Write([]byte(body))
		}
	}
}

// TestDeleteOperation represents a delete operation test case.
type TestDeleteOperation struct {
	Name       string
	StatusCode int
	Response   string
	WantErr    bool
	Check      func(t *testing.T, err error)
}

// RunDeleteTests runs a series of delete operation tests against path.
func RunDeleteTests(
	t *testing.T,
	path string,
	tests []TestDeleteOperation,
	deleteFunc func(*Client) func(context.Context, string) error,
	id string,
) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, respond(t, http.MethodDelete, path, testCase.StatusCode, testCase.Response))

			err := deleteFunc(client)(context.Background(), id)
			if !testCase.WantErr {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)

			if testCase.Check != nil {
				testCase.Check(t, err)
			}
		})
	}
}

func deleteCases() []TestDeleteOperation {
	return []TestDeleteOperation{
		{
			Name:       "no content",
			StatusCode: http.StatusNoContent,
		},
		{
			Name:       "forbidden",
			StatusCode: http.StatusForbidden,
			Response:   forbiddenBody,
			WantErr:    true,
			Check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, directus.IsForbidden(err))
			},
		},
		{
			Name:       "not found without envelope",
			StatusCode: http.StatusNotFound,
			WantErr:    true,
			Check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, directus.IsNotFound(err))
				assert.ErrorIs(t, err, directus.ErrMissingErrorEnvelope)
			},
		},
	}
}
