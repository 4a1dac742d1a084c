package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
)

const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// AuthUser is the caller identified by the bearer token.
type AuthUser struct {
	UserID uuid.UUID
	Email  string
	Role   string
	// FarmerID is the farmer profile a farmer token acts for.
	FarmerID *uuid.UUID
}

func (u *AuthUser) IsAdmin() bool { return u.Role == RoleAdmin }

// CanAccessFarmer reports whether the caller may read or act on a farmer's
// money. Farmers only see their own; buyers see none; admins see all.
func (u *AuthUser) CanAccessFarmer(farmerID uuid.UUID) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleFarmer:
		return u.FarmerID != nil && *u.FarmerID == farmerID
	}
	return false
}

type contextKey string

const userContextKey contextKey = "authenticated_user"

// Claims carried by settlement tokens.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	FarmerID string `json:"farmer_id,omitempty"`
	jwt.RegisteredClaims
}

type JWTConfig struct {
	Secret    string
	Logger    *zap.Logger
	SkipPaths []string
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, apperrors.ErrorBody{Error: msg, Code: apperrors.ErrUnauthenticated})
}

// JWTMiddleware validates HS256 bearer tokens and stores the caller in the
// request context.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Debug("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return unauthorized(c, "Authorization header required")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return unauthorized(c, "Invalid authorization header format. Expected: Bearer <token>")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return unauthorized(c, "Invalid or expired token")
			}

			user, err := userFromClaims(claims)
			if err != nil {
				config.Logger.Warn("Invalid JWT claims",
					zap.Error(err),
					zap.String("path", path))
				return unauthorized(c, "Invalid token claims")
			}

			ctx := context.WithValue(c.Request().Context(), userContextKey, user)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", user.UserID.String())

			return next(c)
		}
	}
}

func userFromClaims(claims *Claims) (*AuthUser, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject is not a uuid: %w", err)
	}

	user := &AuthUser{UserID: userID, Email: claims.Email, Role: claims.Role}
	switch claims.Role {
	case RoleAdmin, RoleBuyer:
	case RoleFarmer:
		// Tokens without farmer_id act for the farmer whose id is the subject.
		farmerID := userID
		if claims.FarmerID != "" {
			if farmerID, err = uuid.Parse(claims.FarmerID); err != nil {
				return nil, fmt.Errorf("farmer_id is not a uuid: %w", err)
			}
		}
		user.FarmerID = &farmerID
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return user, nil
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := GetUserFromContext(c)
			if err != nil {
				return unauthorized(c, "Authentication required")
			}
			for _, r := range roles {
				if user.Role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, apperrors.ErrorBody{
				Error: "insufficient permissions",
				Code:  apperrors.ErrUnauthorized,
			})
		}
	}
}

func GetUserFromContext(c echo.Context) (*AuthUser, error) {
	user, ok := c.Request().Context().Value(userContextKey).(*AuthUser)
	if !ok || user == nil {
		return nil, fmt.Errorf("no authenticated user found in context")
	}
	return user, nil
}

// WithUser returns a context carrying user. Used by in-process callers and tests.
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
