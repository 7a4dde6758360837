package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/app/apiapp"
	"github.com/ivankudzin/plutonic/backend/internal/config"
)

// Requires Postgres and Redis; set PLUTONIC_INTEGRATION=1 with POSTGRES_DSN
// and REDIS_ADDR pointing at disposable instances.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if os.Getenv("PLUTONIC_INTEGRATION") == "" {
		t.Skip("PLUTONIC_INTEGRATION not set")
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.HTTP.Addr = ":0"
	cfg.Postgres.AutoMigrate = true

	app, err := apiapp.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSignupLikeAndAccept(t *testing.T) {
	ts := newTestServer(t)
	suffix := time.Now().UnixNano()

	alice := signup(t, ts, fmt.Sprintf("alice-%d@plutonic.test", suffix), "Alice")
	bob := signup(t, ts, fmt.Sprintf("bob-%d@plutonic.test", suffix), "Bob")

	status, body := call(t, ts, alice.token, http.MethodPost, "/v1/matches/like", map[string]string{"to_user_id": bob.id})
	if status != http.StatusCreated {
		t.Fatalf("like: status %d body %v", status, body)
	}
	match, _ := body["match"].(map[string]any)
	matchID, _ := match["id"].(string)
	if matchID == "" {
		t.Fatalf("like: missing match_id in %v", body)
	}

	status, body = call(t, ts, alice.token, http.MethodPost, "/v1/matches/"+matchID+"/accept", nil)
	if status != http.StatusForbidden {
		t.Fatalf("sender accept: status %d body %v", status, body)
	}

	status, body = call(t, ts, bob.token, http.MethodPost, "/v1/matches/"+matchID+"/accept", nil)
	if status != http.StatusOK {
		t.Fatalf("receiver accept: status %d body %v", status, body)
	}
	if body["status"] != "accepted" {
		t.Fatalf("unexpected match after accept: %v", body)
	}

	status, _ = call(t, ts, alice.token, http.MethodPost, "/v1/matches/"+matchID+"/messages", map[string]string{"content": "hi Bob"})
	if status != http.StatusCreated {
		t.Fatalf("send message: status %d", status)
	}
}

type account struct {
	id    string
	token string
}

func signup(t *testing.T, ts *httptest.Server, email, name string) account {
	t.Helper()
	status, body := call(t, ts, "", http.MethodPost, "/v1/auth/signup", map[string]string{
		"email":    email,
		"password": "correct-horse-battery",
		"name":     name,
	})
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %v", email, status, body)
	}
	token, _ := body["access_token"].(string)

	status, me := call(t, ts, token, http.MethodGet, "/v1/me", nil)
	if status != http.StatusOK {
		t.Fatalf("me %s: status %d", email, status)
	}
	id, _ := me["id"].(string)
	return account{id: id, token: token}
}

func call(t *testing.T, ts *httptest.Server, token, method, path string, payload any) (int, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}
