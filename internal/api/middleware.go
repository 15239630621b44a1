package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hikgate/hikgate-core/internal/auth"
)

const (
	requestIDHeader = "X-Request-ID"

	// A base64 face photo plus the person fields fit well inside 8 MB.
	maxRequestBodySize = 8 << 20

	corsMaxAge         = "86400"
	defaultCORSMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	defaultCORSHeaders = "Authorization, Content-Type, X-Request-ID"
)

type reqInfoKey struct{}

// reqInfo is the per-request state the middleware chain shares with
// handlers. claims and user stay nil on public routes.
type reqInfo struct {
	id     string
	claims *auth.Claims
	user   *auth.User
}

func infoFrom(ctx context.Context) *reqInfo {
	if ri, ok := ctx.Value(reqInfoKey{}).(*reqInfo); ok {
		return ri
	}
	return &reqInfo{}
}

// claimsFromContext returns the caller's claims, nil on public routes.
func claimsFromContext(ctx context.Context) *auth.Claims {
	return infoFrom(ctx).claims
}

func userFromContext(ctx context.Context) *auth.User {
	return infoFrom(ctx).user
}

// trace tags the request with an id (the caller's X-Request-ID when sent),
// logs it once it completes and converts handler panics into a 500.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ri := &reqInfo{id: r.Header.Get(requestIDHeader)}
		if ri.id == "" {
			ri.id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, ri.id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("handler panic",
					"panic", p,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", ri.id,
				)
				writeInternalError(sw, "internal server error")
			}
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(began).Milliseconds(),
				"request_id", ri.id,
			)
		}()

		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), reqInfoKey{}, ri)))
	})
}

// cors answers preflights itself and echoes allowed origins.
func (s *Server) cors(next http.Handler) http.Handler {
	methods := listOr(s.cfg.CORS.AllowedMethods, defaultCORSMethods)
	headers := listOr(s.cfg.CORS.AllowedHeaders, defaultCORSHeaders)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", corsMaxAge)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed treats an empty allow list as "any origin".
func (s *Server) originAllowed(origin string) bool {
	allowed := s.cfg.CORS.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate requires a Bearer token whose subject is still an active
// account. Role and username come from the stored user, not the token, so
// demotions and deactivations take effect immediately.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || raw == "" {
			writeUnauthorized(w, "missing bearer token")
			return
		}
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		user, err := s.userRepo.GetByID(r.Context(), claims.Subject)
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeUnauthorized(w, "account no longer exists")
			return
		case err != nil:
			s.logger.Error("auth user lookup failed", "error", err, "user_id", claims.Subject)
			writeInternalError(w, "authentication failed")
			return
		case !user.IsActive:
			writeUnauthorized(w, auth.ErrUserInactive.Error())
			return
		}
		claims.Role, claims.Username = user.Role, user.Username

		ri := infoFrom(r.Context())
		ri.claims, ri.user = claims, user
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), reqInfoKey{}, ri)))
	})
}

// requirePermission rejects callers whose role lacks perm.
func (s *Server) requirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c := claimsFromContext(r.Context()); c == nil || !c.Can(perm) {
				writeForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func listOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
