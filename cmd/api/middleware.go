package main

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pasal/internal/auth"
	"pasal/internal/domain/accesscontrol"
)

type principalKey string

const principalCtx principalKey = "principal"

// principal is the caller identified by the bearer token.
type principal struct {
	ID   int64
	Role string
}

func getPrincipal(r *http.Request) *principal {
	p, _ := r.Context().Value(principalCtx).(*principal)
	return p
}

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// read the auth header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			username := app.config.AuthBasicUser
			pass := app.config.AuthBasicPass

			creds := strings.SplitN(string(decoded), ":", 2)
			if pass == "" || len(creds) != 2 ||
				subtle.ConstantTimeCompare([]byte(creds[0]), []byte(username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(creds[1]), []byte(pass)) != 1 {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
			return
		}

		jwtToken, err := app.authenticator.ValidateAccessToken(parts[1])
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		userID, role, err := auth.Subject(jwtToken)
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalCtx, &principal{ID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin checks the admin role in the database; the token role claim is
// not trusted for admin routes.
func (app *application) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := getPrincipal(r)
		if p == nil {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("not authorized"))
			return
		}

		isAdmin, err := app.access.UserHasRole(r.Context(), p.ID, accesscontrol.RoleAdmin)
		if err != nil {
			app.internalServerError(w, r, fmt.Errorf("check role: %w", err))
			return
		}
		if !isAdmin {
			app.forbiddenResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authorizeShop reports whether the caller owns shopID or is an admin. It writes
// the error response itself when it returns false.
func (app *application) authorizeShop(w http.ResponseWriter, r *http.Request, shopID uuid.UUID) bool {
	p := getPrincipal(r)
	if p == nil {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("not authorized"))
		return false
	}

	owns, err := app.access.OwnsShop(r.Context(), p.ID, shopID)
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("check shop owner: %w", err))
		return false
	}
	if owns {
		return true
	}

	isAdmin, err := app.access.UserHasRole(r.Context(), p.ID, accesscontrol.RoleAdmin)
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("check role: %w", err))
		return false
	}
	if !isAdmin {
		app.forbiddenResponse(w, r)
		return false
	}
	return true
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.RateLimiterEnabled && app.rateLimiter != nil {
			if allow, retryAfter := app.rateLimiter.Allow(clientIP(r)); !allow {
				app.rateLimitExceededResponse(w, r, retryAfter)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port chi's RealIP may leave on RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
