package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
)

func TestServer_Routes(t *testing.T) {
	cfg := &config.Config{
		Service: config.ServiceConfig{Name: "settlement_test"},
		Auth:    config.AuthConfig{JWTSecret: "secret"},
	}
	e := NewServer(cfg, zap.NewNop(), Services{}).Echo()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"wallet requires token", http.MethodGet, "/api/v1/wallets/" + uuid.NewString(), http.StatusUnauthorized},
		{"payouts require token", http.MethodPost, "/api/v1/payouts", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"unknown api route still authenticates", http.MethodGet, "/api/v1/nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
