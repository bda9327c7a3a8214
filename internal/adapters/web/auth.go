package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"quotedesk/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const authCookie = "auth_token"

type authClaimsKey struct{}

// AuthClaims holds the authenticated user's identity extracted from the JWT.
type AuthClaims struct {
	UserID    int
	CompanyID int
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// Actor is the identity core operations run as.
func (c *AuthClaims) Actor() core.Actor {
	return core.Actor{UserID: c.UserID, CompanyID: c.CompanyID, Role: c.Role}
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// actorFromRequest returns the actor set by RequireAuth. Only call it behind that middleware.
func actorFromRequest(r *http.Request) core.Actor {
	return authFromContext(r.Context()).Actor()
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	UserID    int    `json:"user_id"`
	CompanyID int    `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) issueToken(userID, companyID int, role string, now time.Time) (string, error) {
	claims := &jwtClaims{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}

func (h *Handler) parseToken(raw string) (*AuthClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, errors.New("invalid token")
	}
	return &AuthClaims{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RequireAuth is chi middleware that validates the auth_token cookie and injects
// AuthClaims into the request context. Returns 401 if the token is absent, invalid
// or revoked by a logout.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookie)
		if err != nil {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		claims, err := h.parseToken(cookie.Value)
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		revoked, err := h.denylist.IsRevoked(r.Context(), claims.TokenID)
		if err != nil {
			h.log.WithError(err).Error("session denylist unavailable")
			writeError(w, r, "session check failed", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}
		if revoked {
			writeError(w, r, "session has been logged out", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability rejects authenticated users whose role lacks c with 403.
func (h *Handler) RequireCapability(c core.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := authFromContext(r.Context())
			if claims == nil {
				writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
				return
			}
			if err := claims.Actor().Authorize(c); err != nil {
				h.writeAppError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	signed, err := h.issueToken(session.UserID, session.CompanyID, session.Role, time.Now())
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
	writeJSON(w, session)
}

// logout handles POST /api/auth/logout. A valid token is revoked until it
// would have expired; the cookie is cleared either way.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(authCookie); err == nil {
		if claims, err := h.parseToken(cookie.Value); err == nil {
			if err := h.denylist.Revoke(r.Context(), claims.TokenID, claims.ExpiresAt); err != nil {
				h.log.WithError(err).WithField("user_id", claims.UserID).Error("failed to revoke session")
				writeError(w, r, "logout failed", "INTERNAL_ERROR", http.StatusInternalServerError)
				return
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/auth/me and returns the current user's profile.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	user, err := h.svc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	type meResponse struct {
		UserID       int               `json:"user_id"`
		Username     string            `json:"username"`
		Email        string            `json:"email"`
		Role         string            `json:"role"`
		CompanyCode  string            `json:"company_code"`
		Capabilities []core.Capability `json:"capabilities"`
	}
	writeJSON(w, meResponse{
		UserID:       user.UserID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		CompanyCode:  user.CompanyCode,
		Capabilities: claims.Actor().Capabilities(),
	})
}
