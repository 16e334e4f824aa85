package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/whatease/backend/internal/auth"
	"github.com/whatease/backend/internal/handler/account"
	"github.com/whatease/backend/internal/store"
)

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(t *testing.T) (chi.Router, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	tokens := auth.NewManager("test-secret", time.Hour)
	h := account.New(st, tokens)

	r := chi.NewRouter()
	h.RegisterPublicRoutes(r, passthrough)
	r.Group(func(g chi.Router) {
		g.Use(tokens.Middleware)
		h.RegisterProtectedRoutes(g)
	})
	return r, st
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	r, _ := newRouter(t)

	rec := postJSON(t, r, "/register", `{"email":"a@x.com","password":"hunter2"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body)
	}

	rec = postJSON(t, r, "/login", `{"email":"a@x.com","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	// The issued token authenticates /me.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	meRec := httptest.NewRecorder()
	r.ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("me status = %d", meRec.Code)
	}
	if !strings.Contains(meRec.Body.String(), "a@x.com") {
		t.Fatalf("me body = %s", meRec.Body)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r, _ := newRouter(t)

	if rec := postJSON(t, r, "/register", `{"email":"a@x.com","password":"pw"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	rec := postJSON(t, r, "/register", `{"email":"a@x.com","password":"pw"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newRouter(t)

	rec := postJSON(t, r, "/register", `{"email":"","password":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _ := newRouter(t)

	if rec := postJSON(t, r, "/register", `{"email":"a@x.com","password":"right"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	if rec := postJSON(t, r, "/login", `{"email":"a@x.com","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}
	if rec := postJSON(t, r, "/login", `{"email":"nobody@x.com","password":"pw"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d, want 401", rec.Code)
	}
}

func TestLoginRejectsImplicitUser(t *testing.T) {
	r, st := newRouter(t)

	// Seen only as a message participant; no credentials on file.
	if err := st.EnsureUser(context.Background(), "ghost@x.com"); err != nil {
		t.Fatalf("EnsureUser err: %v", err)
	}

	rec := postJSON(t, r, "/login", `{"email":"ghost@x.com","password":"anything"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	r, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
