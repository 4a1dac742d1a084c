package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func claimsFor(sub, role string, exp time.Duration) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
	}
}

func TestJWTMiddleware(t *testing.T) {
	userID := uuid.New()
	farmerID := uuid.New()

	farmerClaims := claimsFor(userID.String(), RoleFarmer, time.Hour)
	farmerClaims.FarmerID = farmerID.String()

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		check      func(t *testing.T, user *AuthUser)
	}{
		{
			name:       "skip path",
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			path:       "/api/v1/wallets/x",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not bearer",
			path:       "/api/v1/wallets/x",
			header:     "Token abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			path:       "/api/v1/wallets/x",
			header:     "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			path:       "/api/v1/wallets/x",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(userID.String(), RoleAdmin, -time.Minute)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			path:       "/api/v1/wallets/x",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), claimsFor(userID.String(), RoleAdmin, time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown role",
			path:       "/api/v1/wallets/x",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(userID.String(), "root", time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "subject not uuid",
			path:       "/api/v1/wallets/x",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("alice", RoleBuyer, time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "farmer token",
			path:       "/api/v1/wallets/x",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), farmerClaims),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, user *AuthUser) {
				assert.Equal(t, userID, user.UserID)
				require.NotNil(t, user.FarmerID)
				assert.Equal(t, farmerID, *user.FarmerID)
				assert.True(t, user.CanAccessFarmer(farmerID))
				assert.False(t, user.CanAccessFarmer(uuid.New()))
			},
		},
		{
			name:       "farmer token without farmer_id acts as subject",
			path:       "/api/v1/wallets/x",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(userID.String(), RoleFarmer, time.Hour)),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, user *AuthUser) {
				assert.True(t, user.CanAccessFarmer(userID))
			},
		},
		{
			name:       "buyer token",
			path:       "/api/v1/wallets/x",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(userID.String(), RoleBuyer, time.Hour)),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, user *AuthUser) {
				assert.Nil(t, user.FarmerID)
				assert.False(t, user.CanAccessFarmer(farmerID))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen *AuthUser
			handler := JWTMiddleware(JWTConfig{Secret: testSecret, Logger: zap.NewNop(), SkipPaths: []string{"/health"}})(func(c echo.Context) error {
				seen, _ = GetUserFromContext(c)
				return c.NoContent(http.StatusOK)
			})

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				require.NotNil(t, seen)
				tt.check(t, seen)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		user       *AuthUser
		wantStatus int
	}{
		{"admin allowed", &AuthUser{UserID: uuid.New(), Role: RoleAdmin}, http.StatusOK},
		{"farmer forbidden", &AuthUser{UserID: uuid.New(), Role: RoleFarmer}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := RequireRole(RoleAdmin)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
