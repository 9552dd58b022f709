package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/rentledger/internal/middleware"
)

const wsA = "6f1c2a9e-4b7d-4c1e-9a55-0d2b7e3f8a10"

func captureWorkspace(got *string) http.Handler {
	return middleware.WorkspaceID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*got = middleware.WorkspaceIDFromContext(r.Context())
	}))
}

func TestWorkspaceIDFromHeader(t *testing.T) {
	var got string
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("X-Workspace-ID", wsA)
	captureWorkspace(&got).ServeHTTP(httptest.NewRecorder(), req)

	if got != wsA {
		t.Fatalf("expected %s, got %s", wsA, got)
	}
}

func TestWorkspaceIDFromQuery(t *testing.T) {
	var got string
	req := httptest.NewRequest("GET", "/ws?workspace="+wsA, http.NoBody)
	captureWorkspace(&got).ServeHTTP(httptest.NewRecorder(), req)

	if got != wsA {
		t.Fatalf("expected %s, got %s", wsA, got)
	}
}

func TestWorkspaceIDDefaultFallback(t *testing.T) {
	var got string
	req := httptest.NewRequest("GET", "/", http.NoBody)
	captureWorkspace(&got).ServeHTTP(httptest.NewRecorder(), req)

	if got != middleware.DefaultWorkspaceID {
		t.Fatalf("expected default workspace, got %s", got)
	}
}

func TestWorkspaceIDRejectsMalformed(t *testing.T) {
	called := false
	handler := middleware.WorkspaceID(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("X-Workspace-ID", "../../etc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if called {
		t.Fatal("next handler should not run")
	}
}

func TestWorkspaceIDFromContextMissing(t *testing.T) {
	if got := middleware.WorkspaceIDFromContext(context.Background()); got != middleware.DefaultWorkspaceID {
		t.Fatalf("expected default workspace, got %s", got)
	}
}
