package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Middleware resolves the request identity and stores it in the request
// context. A missing header starts a new anonymous session; a malformed one
// is rejected with 400. The resolved identity is echoed in the response
// header so clients can adopt a minted session id.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var id Identity
			header := r.Header.Get(HeaderName)
			if header == "" {
				id = New()
				logger.Debug("starting anonymous session", slog.String("sid", id.SessionID))
			} else {
				parsed, err := ParseHeader(header)
				if err != nil {
					logger.Warn("invalid Storefront-Session header",
						slog.String("header", header),
						slog.String("error", err.Error()))
					writeSessionError(w, "Invalid Storefront-Session header: "+err.Error())
					return
				}
				id = parsed
			}

			if value, err := FormatHeader(id); err == nil {
				w.Header().Set(HeaderName, value)
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// isExemptPath returns true for paths that carry no shopper identity.
// Health checks are infrastructure; MCP passes the session per tool call.
func isExemptPath(path string) bool {
	switch path {
	case "/health", "/healthz", "/mcp":
		return true
	default:
		return false
	}
}

// writeSessionError writes the standard error envelope.
func writeSessionError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = "VALIDATION_ERROR"
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}
