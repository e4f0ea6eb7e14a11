package http

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"tripmeet-backend/internal/config"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/security"
	"tripmeet-backend/internal/service"
)

// AuthMiddleware authenticates requests according to the security level of
// the matched route and loads the caller's profile into the context.
type AuthMiddleware struct {
	tokens   security.TokenManager
	profiles service.ProfileService
}

func NewAuthMiddleware(tokens security.TokenManager, profiles service.ProfileService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, profiles: profiles}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		level := config.GetSecurityLevel(name)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			respondMessage(w, http.StatusUnauthorized, "unauthenticated", "authorization token is not provided")
			return
		}
		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			logger.Debug("Rejected token", "route", name, "error", err)
			respondMessage(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
			return
		}

		// Profiles are created lazily on the first authenticated request.
		profile, err := m.profiles.EnsureProfile(r.Context(), claims.UserID(), claims.Email)
		if err != nil {
			respondError(w, r, "load your profile", err)
			return
		}
		if level == config.SecurityOnboarded && !profile.IsOnboarded() {
			respondMessage(w, http.StatusForbidden, "onboarding_required", "Complete your profile to continue")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims.UserID(), profile)))
	})
}

// extractToken reads a Bearer header, or the access_token query parameter
// that browsers use for WebSocket upgrades.
func extractToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		return strings.TrimSpace(token[7:])
	}
	if token != "" {
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// loggingMiddleware logs each request with method, path, status and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("HTTP request", "method", r.Method, "path", r.URL.Path,
			"status", rw.statusCode, "duration", time.Since(start))
	})
}

// recoveryMiddleware turns a handler panic into a 500.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", rec)
				respondMessage(w, http.StatusInternalServerError, "internal", "Something went wrong")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// WithCORS wraps the whole router so preflight requests are answered even
// for routes that do not list OPTIONS.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker so WebSocket upgrades work through the logging middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}
