package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/acaslabs/mcp-server/internal/common"
)

// Authenticator resolves caller identity from either a static API token
// (server-to-server) or a session cookie validated against the ROO server
// (browser users). The core only consumes the resolved display name.
type Authenticator struct {
	cfg    common.AuthConfig
	http   *http.Client
	logger *zap.Logger
}

func NewAuthenticator(cfg common.AuthConfig, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// rooUser is the ROO getuser payload subset we consume.
type rooUser struct {
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Middleware authenticates the request and, when roles are given, requires the
// identity to carry at least one of them.
func (a *Authenticator) Middleware(requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// API token (server-to-server) takes precedence.
			if token := r.Header.Get("X-API-Token"); token != "" {
				if svc, ok := a.cfg.APITokens[token]; ok {
					id := common.Identity{
						Name:             svc.Name,
						Roles:            svc.Roles,
						AuthenticatedVia: "api-token",
					}
					if !id.HasAnyRole(requiredRoles...) {
						writeErrorMessage(w, http.StatusForbidden, "Insufficient permissions for this token")
						return
					}
					next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), id)))
					return
				}
			}

			// Otherwise require a session cookie and validate it against ROO.
			cookie := r.Header.Get("Cookie")
			if cookie == "" {
				writeErrorMessage(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			user, status, err := a.validateSession(r, cookie)
			if err != nil {
				if status == http.StatusUnauthorized || status == http.StatusForbidden {
					writeErrorMessage(w, http.StatusUnauthorized, "Invalid or expired session")
					return
				}
				a.logger.Error("authentication service error", zap.Error(err))
				writeErrorMessage(w, http.StatusInternalServerError, "Authentication service unavailable")
				return
			}

			id := common.Identity{
				Name:             user.Name,
				Username:         user.Username,
				Roles:            user.Roles,
				AuthenticatedVia: "session",
			}
			if !id.HasAnyRole(requiredRoles...) {
				writeErrorMessage(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), id)))
		})
	}
}

// validateSession forwards the cookie to ROO's getuser endpoint.
func (a *Authenticator) validateSession(r *http.Request, cookie string) (rooUser, int, error) {
	var user rooUser

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, a.cfg.ROOBaseURL+"/authors/getuser", nil)
	if err != nil {
		return user, 0, err
	}
	req.Header.Set("Cookie", cookie)

	resp, err := a.http.Do(req)
	if err != nil {
		return user, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return user, resp.StatusCode, common.ErrUnauthorized
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return user, resp.StatusCode, err
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return user, resp.StatusCode, err
	}
	return user, resp.StatusCode, nil
}
