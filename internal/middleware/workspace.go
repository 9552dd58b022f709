package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultWorkspaceID is used when a request names no workspace.
const DefaultWorkspaceID = "00000000-0000-0000-0000-000000000000"

const (
	headerWorkspaceID = "X-Workspace-ID"
	queryWorkspaceID  = "workspace"
)

type workspaceCtxKey struct{}

// WorkspaceID extracts the workspace ID from the X-Workspace-ID header or the
// ?workspace= query parameter (browsers cannot set headers on websocket
// upgrades) and stores it in the request context. Falls back to
// DefaultWorkspaceID if absent; rejects values that are not UUIDs.
func WorkspaceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wid := r.Header.Get(headerWorkspaceID)
		if wid == "" {
			wid = r.URL.Query().Get(queryWorkspaceID)
		}
		if wid == "" {
			wid = DefaultWorkspaceID
		}
		parsed, err := uuid.Parse(wid)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid workspace id")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithWorkspaceID(r.Context(), parsed.String())))
	})
}

// WithWorkspaceID returns a copy of ctx scoped to workspace id.
func WithWorkspaceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workspaceCtxKey{}, id)
}

// WorkspaceIDFromContext returns the workspace ID stored in ctx, or DefaultWorkspaceID if absent.
func WorkspaceIDFromContext(ctx context.Context) string {
	if wid, ok := ctx.Value(workspaceCtxKey{}).(string); ok && wid != "" {
		return wid
	}
	return DefaultWorkspaceID
}
