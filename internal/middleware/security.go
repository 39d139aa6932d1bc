package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"petrodash/internal/config"
	apierrors "petrodash/internal/errors"
	"petrodash/internal/infrastructure"
)

// maxUserIDLength bounds the identity header
const maxUserIDLength = 128

// UserIdentity copies the user ID header into the request context. Requests
// without the header continue anonymously; malformed IDs are rejected.
func UserIdentity(errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(config.UserIDHeader))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(userID) > maxUserIDLength || strings.ContainsFunc(userID, isControl) {
				errorHandler.HandleError(w, r, apierrors.ErrValidation(config.UserIDHeader, "user id is malformed"))
				return
			}
			next.ServeHTTP(w, r.WithContext(infrastructure.WithUserID(r.Context(), userID)))
		})
	}
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// RequireUser rejects requests that carry no user identity
func RequireUser(errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if infrastructure.GetUserID(r.Context()) == "" {
				errorHandler.HandleError(w, r, apierrors.ErrMissingUser)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeaders provides configurable security headers
type SecureHeaders struct {
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	ContentSecurityPolicy string
	XFrameOptions         string
	XContentTypeOptions   string
	ReferrerPolicy        string
	PermissionsPolicy     string

	// DevMode relaxes the default CSP
	DevMode bool
}

// DefaultSecureHeaders returns secure headers with default settings
func DefaultSecureHeaders(devMode bool) *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:            63072000, // 2 years
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		DevMode:               devMode,
	}
}

// Handler returns the middleware handler
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		if sh.HSTSMaxAge > 0 && r.TLS != nil {
			hsts := fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
			if sh.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			h.Set("Strict-Transport-Security", hsts)
		}

		csp := sh.ContentSecurityPolicy
		if csp == "" {
			csp = sh.defaultCSP()
		}
		h.Set("Content-Security-Policy", csp)

		if sh.XFrameOptions != "" {
			h.Set("X-Frame-Options", sh.XFrameOptions)
		}
		if sh.XContentTypeOptions != "" {
			h.Set("X-Content-Type-Options", sh.XContentTypeOptions)
		}
		if sh.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", sh.ReferrerPolicy)
		}
		if sh.PermissionsPolicy != "" {
			h.Set("Permissions-Policy", sh.PermissionsPolicy)
		} else {
			h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")
		}

		next.ServeHTTP(w, r)
	})
}

func (sh *SecureHeaders) defaultCSP() string {
	if sh.DevMode {
		return "default-src 'self'; script-src 'self' 'unsafe-inline' *; style-src 'self' 'unsafe-inline' *; connect-src *"
	}
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' https://cdn.jsdelivr.net",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"connect-src 'self' ws: wss:",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}

// AuditLog records who changed what. Reads pass through unlogged.
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			ctx := r.Context()
			logger.InfoContext(ctx, "audit",
				slog.String("event_type", "mutation"),
				slog.String("user_id", infrastructure.GetUserID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
