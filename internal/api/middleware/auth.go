package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

// APIKeyHeader is the header clients authenticate with
const APIKeyHeader = "X-API-Key"

// APIKey returns a middleware that checks the static API key. An empty
// configured key disables authentication, which is only sensible for
// local runs.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get(APIKeyHeader)
			if presented == "" {
				utils.WriteError(w, errors.Unauthorized("Missing API key"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				utils.WriteError(w, errors.Unauthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
