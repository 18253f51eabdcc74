package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// useTempConfig points the CLI at an empty config file and resets viper afterwards.
// Tests calling it share global viper state and must not run in parallel.
func useTempConfig(t *testing.T, values map[string]interface{}) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yml")
	viper.Set("config", path)

	for key, value := range values {
		viper.Set(key, value)
	}

	return path
}

// executeCommand runs cmd with args and returns what it wrote to stdout.
func executeCommand(cmd *cobra.Command, stdin string, args ...string) (string, error) {
	var out, errOut bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

// fakeDirectus is a minimal Directus API covering the endpoints used by the CLI.
type fakeDirectus struct {
	t      *testing.T
	server *httptest.Server

	mutex     sync.Mutex
	deleted   []string
	created   []map[string]interface{}
	logins    int
	refreshes int
}

func newFakeDirectus(t *testing.T) *fakeDirectus {
	t.Helper()

	fake := &fakeDirectus{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", fake.login)
	mux.HandleFunc("POST /auth/refresh", fake.refresh)
	mux.HandleFunc("GET /items/articles", fake.authorized(func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusOK, `{"data":[{"id":1,"title":"Hello"},{"id":2,"title":"World"}]}`)
	}))
	mux.HandleFunc("GET /items/articles/{id}", fake.authorized(func(writer http.ResponseWriter, request *http.Request) {
		id := request.PathValue("id")
		if id == "404" {
			writeJSON(writer, http.StatusNotFound, `{"errors":[{"message":"Not found","extensions":{"code":"ROUTE_NOT_FOUND"}}]}`)

			return
		}

		writeJSON(writer, http.StatusOK, `{"data":{"id":`+id+`,"title":"Article `+id+`"}}`)
	}))
	mux.HandleFunc("POST /items/articles", fake.authorized(fake.createArticle))
	mux.HandleFunc("DELETE /items/articles/{id}", fake.authorized(func(writer http.ResponseWriter, request *http.Request) {
		id := request.PathValue("id")
		if id == "404" {
			writeJSON(writer, http.StatusNotFound, `{"errors":[{"message":"Not found","extensions":{"code":"ROUTE_NOT_FOUND"}}]}`)

			return
		}

		fake.mutex.Lock()
		fake.deleted = append(fake.deleted, id)
		fake.mutex.Unlock()

		writer.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /folders", fake.authorized(func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusOK, `{"data":[{"id":"f1","name":"Images","parent":null}]}`)
	}))
	mux.HandleFunc("GET /activity/{id}", fake.authorized(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusOK, `{"data":{"id":`+request.PathValue("id")+
			`,"action":"create","collection":"articles","item":"1","timestamp":"2024-05-01T12:00:00Z"}}`)
	}))

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeDirectus) URL() string {
	return f.server.URL
}

func (f *fakeDirectus) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		switch request.Header.Get("Authorization") {
		case "Bearer access-1", "Bearer access-2", "Bearer static-token":
			next(writer, request)
		default:
			writeJSON(writer, http.StatusUnauthorized, `{"errors":[{"message":"Invalid token","extensions":{"code":"INVALID_TOKEN"}}]}`)
		}
	}
}

func (f *fakeDirectus) login(writer http.ResponseWriter, request *http.Request) {
	var body map[string]string

	assert.NoError(f.t, json.NewDecoder(request.Body).Decode(&body))

	if body["email"] != "admin@example.com" || body["password"] != "secret" {
		writeJSON(writer, http.StatusUnauthorized,
			`{"errors":[{"message":"Invalid user credentials.","extensions":{"code":"INVALID_CREDENTIALS"}}]}`)

		return
	}

	f.mutex.Lock()
	f.logins++
	f.mutex.Unlock()

	writeJSON(writer, http.StatusOK, `{"data":{"access_token":"access-1","refresh_token":"refresh-1","expires":900000}}`)
}

func (f *fakeDirectus) refresh(writer http.ResponseWriter, request *http.Request) {
	var body map[string]string

	assert.NoError(f.t, json.NewDecoder(request.Body).Decode(&body))

	if body["refresh_token"] != "refresh-1" {
		writeJSON(writer, http.StatusUnauthorized,
			`{"errors":[{"message":"Invalid refresh token.","extensions":{"code":"INVALID_CREDENTIALS"}}]}`)

		return
	}

	f.mutex.Lock()
	f.refreshes++
	f.mutex.Unlock()

	writeJSON(writer, http.StatusOK, `{"data":{"access_token":"access-2","refresh_token":"refresh-2","expires":900000}}`)
}

func (f *fakeDirectus) createArticle(writer http.ResponseWriter, request *http.Request) {
	var body map[string]interface{}

	if !assert.NoError(f.t, json.NewDecoder(request.Body).Decode(&body)) {
		writer.WriteHeader(http.StatusBadRequest)

		return
	}

	if body["title"] == "bad" {
		writeJSON(writer, http.StatusBadRequest,
			`{"errors":[{"message":"Invalid payload","extensions":{"code":"INVALID_PAYLOAD"}}]}`)

		return
	}

	f.mutex.Lock()
	f.created = append(f.created, body)
	body["id"] = len(f.created) + 100
	f.mutex.Unlock()

	data, err := json.Marshal(map[string]interface{}{"data": body})
	assert.NoError(f.t, err)

	writeJSON(writer, http.StatusOK, string(data))
}

func (f *fakeDirectus) Logins() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.logins
}

func (f *fakeDirectus) Refreshes() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.refreshes
}

func (f *fakeDirectus) Deleted() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]string(nil), f.deleted...)
}

func writeJSON(writer http.ResponseWriter, status int, body string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, _ = writer.Write([]byte(body))
}
