package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/delordemm1/account-guard/internal/config"
	"github.com/delordemm1/account-guard/internal/credential"
	"github.com/delordemm1/account-guard/internal/httpx"
	"github.com/delordemm1/account-guard/internal/modules/user"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Body struct {
		Status string `json:"status"`
	}
}

// New creates and configures a new server instance.
func New(cfg *config.Config, log *slog.Logger, userService user.Service, issuer credential.Issuer) chi.Router {
	huma.NewError = httpx.NewError

	// Create a new Chi router and Huma API.
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	apiConfig := huma.DefaultConfig("Account Guard API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: bearerFormat(cfg),
		},
	}
	api := humachi.New(router, apiConfig)

	userHandler := user.NewHandler(userService, issuer, log)
	userHandler.RegisterRoutes(api)

	// Register a simple health check endpoint.
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	return router
}

func bearerFormat(cfg *config.Config) string {
	if cfg != nil && cfg.Auth.CredentialMode == "session" {
		return "Opaque"
	}
	return "JWT"
}
