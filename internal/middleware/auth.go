package middleware

import (
	"context"
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
}

type apiKeyCtxKey struct{}

// APIKeyAuth checks API keys against a fixed set of bcrypt hashes
// (generated with "rentledger admin hash-key"). Verified keys are
// remembered by digest so bcrypt runs once per key.
type APIKeyAuth struct {
	hashes [][]byte

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]int // digest -> index of matching hash
}

// NewAPIKeyAuth creates an authenticator for the given bcrypt hashes.
func NewAPIKeyAuth(hashes []string) *APIKeyAuth {
	a := &APIKeyAuth{verified: make(map[[sha256.Size]byte]int)}
	for _, h := range hashes {
		if h = strings.TrimSpace(h); h != "" {
			a.hashes = append(a.hashes, []byte(h))
		}
	}
	return a
}

// Verify reports whether key matches one of the configured hashes and
// returns the index of the matching hash.
func (a *APIKeyAuth) Verify(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	digest := sha256.Sum256([]byte(key))
	a.mu.RLock()
	idx, ok := a.verified[digest]
	a.mu.RUnlock()
	if ok {
		return idx, true
	}
	for i, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			a.mu.Lock()
			a.verified[digest] = i
			a.mu.Unlock()
			return i, true
		}
	}
	return 0, false
}

// Handler returns middleware that requires a valid key in X-API-Key or
// "Authorization: Bearer". Websocket upgrades may pass ?api_key= instead.
// When enabled is false every request passes.
func (a *APIKeyAuth) Handler(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				if h := r.Header.Get("Authorization"); h != "" {
					token := strings.TrimPrefix(h, "Bearer ")
					if token == h {
						writeJSONError(w, http.StatusUnauthorized, "invalid authorization header")
						return
					}
					key = token
				}
			}
			if key == "" && r.URL.Path == "/ws" {
				key = r.URL.Query().Get("api_key")
			}
			if key == "" {
				writeJSONError(w, http.StatusUnauthorized, "authorization required")
				return
			}

			idx, ok := a.Verify(key)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			ctx := context.WithValue(r.Context(), apiKeyCtxKey{}, idx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyIndexFromContext returns the index of the configured hash that
// authenticated the request, or -1 when the request was not authenticated.
func APIKeyIndexFromContext(ctx context.Context) int {
	if idx, ok := ctx.Value(apiKeyCtxKey{}).(int); ok {
		return idx
	}
	return -1
}
