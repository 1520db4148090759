package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskmaster/internal/config"
	"github.com/yourusername/taskmaster/internal/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	cfg := &config.Config{SecretKey: "test-secret", Algorithm: "HS256", AccessTokenExpireMinutes: 60}
	manager, err := NewManager(cfg, store, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	router := gin.New()
	router.POST("/auth/register", manager.Register)
	router.POST("/auth/login", manager.Login)
	return router, manager
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(router, "/auth/register", `{"email":"alice@example.com","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["email"] != "alice@example.com" || payload["id"] == nil {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if _, ok := payload["password"]; ok {
		t.Fatal("response must not contain password")
	}

	dup := postJSON(router, "/auth/register", `{"email":"alice@example.com","password":"other"}`)
	if dup.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for duplicate: %d", dup.Code)
	}

	badEmail := postJSON(router, "/auth/register", `{"email":"not-an-email","password":"x"}`)
	if badEmail.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status for bad email: %d", badEmail.Code)
	}

	long := postJSON(router, "/auth/register", `{"email":"bob@example.com","password":"`+strings.Repeat("x", 73)+`"}`)
	if long.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status for long password: %d", long.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	router, manager := newTestRouter(t)
	if rec := postJSON(router, "/auth/register", `{"email":"alice@example.com","password":"s3cret"}`); rec.Code != http.StatusOK {
		t.Fatalf("register failed: %d", rec.Code)
	}

	rec := postJSON(router, "/auth/login", `{"email":"alice@example.com","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	subject, err := manager.Tokens().Validate(payload["token"])
	if err != nil || subject != "alice@example.com" {
		t.Fatalf("unexpected token subject: %q, %v", subject, err)
	}

	wrong := postJSON(router, "/auth/login", `{"email":"alice@example.com","password":"nope"}`)
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status for wrong password: %d", wrong.Code)
	}

	long := postJSON(router, "/auth/login", `{"email":"alice@example.com","password":"`+strings.Repeat("x", 80)+`"}`)
	if long.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status for over-long password: %d", long.Code)
	}

	missing := postJSON(router, "/auth/login", `{"email":"alice@example.com"}`)
	if missing.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status for missing password: %d", missing.Code)
	}
}

func TestEmptyPasswordIsAccepted(t *testing.T) {
	router, manager := newTestRouter(t)

	rec := postJSON(router, "/auth/register", `{"email":"empty@example.com","password":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status for empty password register: %d body=%s", rec.Code, rec.Body.String())
	}

	login := postJSON(router, "/auth/login", `{"email":"empty@example.com","password":""}`)
	if login.Code != http.StatusOK {
		t.Fatalf("unexpected status for empty password login: %d body=%s", login.Code, login.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(login.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if subject, err := manager.Tokens().Validate(payload["token"]); err != nil || subject != "empty@example.com" {
		t.Fatalf("unexpected token subject: %q, %v", subject, err)
	}

	if rec := postJSON(router, "/auth/register", `{"email":"alice@example.com","password":"s3cret"}`); rec.Code != http.StatusOK {
		t.Fatalf("register failed: %d", rec.Code)
	}
	wrong := postJSON(router, "/auth/login", `{"email":"alice@example.com","password":""}`)
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status for empty password login: %d", wrong.Code)
	}

	missing := postJSON(router, "/auth/register", `{"email":"bob@example.com"}`)
	if missing.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status for missing password: %d", missing.Code)
	}
}
