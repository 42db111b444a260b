// Package server assembles the assistant services and serves the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/maiahq/maia/internal/profile"
	"github.com/maiahq/maia/server/feedback"
	"github.com/maiahq/maia/server/finops"
	"github.com/maiahq/maia/server/llm"
	"github.com/maiahq/maia/server/pipeline"
	apiv1 "github.com/maiahq/maia/server/router/api/v1"
	"github.com/maiahq/maia/server/routing"
	"github.com/maiahq/maia/store"
)

type Server struct {
	Profile  *profile.Profile
	Store    *store.Store
	Ledger   *finops.Ledger
	Router   *routing.Router
	Feedback *feedback.Service
	Pipeline *pipeline.Pipeline

	echoServer *echo.Echo
	logger     *slog.Logger
}

// NewServer wires the full service graph from the profile: providers,
// budget ledger, router, feedback loop, pipeline, and the HTTP API.
func NewServer(ctx context.Context, profile *profile.Profile, storeInstance *store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	providers := make(map[string]llm.Provider, len(profile.Providers))
	accounts := make([]finops.AccountConfig, 0, len(profile.Providers))
	order := make([]string, 0, len(profile.Providers))
	for _, prov := range profile.Providers {
		accounts = append(accounts, finops.AccountConfig{
			Provider:   prov.Name,
			MonthlyCap: prov.MonthlyCap,
			InputRate:  prov.InputRate,
			OutputRate: prov.OutputRate,
		})
		order = append(order, prov.Name)

		// Ollama is keyless and the mock vendor is offline.
		if prov.APIKey == "" && prov.Vendor != "ollama" && prov.Vendor != "mock" {
			logger.Warn("provider has no API key, skipping", "provider", prov.Name)
			continue
		}
		p, err := llm.NewProvider(&llm.Config{
			Name:    prov.Name,
			Vendor:  prov.Vendor,
			APIKey:  prov.APIKey,
			BaseURL: prov.BaseURL,
			Model:   prov.Model,
			Timeout: profile.CallTimeout,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider %s", prov.Name)
		}
		providers[prov.Name] = p
	}

	preferences := profile.CategoryPreferences
	if len(preferences) == 0 {
		// Fall back to configuration order for every category.
		preferences = make(map[string][]string)
		for _, category := range []routing.Category{
			routing.CategoryClassification,
			routing.CategorySummarization,
			routing.CategoryResponseGeneration,
			routing.CategoryActionExtraction,
			routing.CategoryReasoning,
		} {
			preferences[string(category)] = order
		}
	}

	ledger := finops.NewLedger(accounts)
	router := routing.NewRouter(routing.Options{
		Providers:   providers,
		Preferences: preferences,
		Ledger:      ledger,
		AllowBypass: profile.AllowBudgetBypass,
		Logger:      logger,
	})
	feedbackService := feedback.NewService(storeInstance, logger)
	assistantPipeline := pipeline.New(pipeline.Options{
		Router:   router,
		Ledger:   ledger,
		Feedback: feedbackService,
		Store:    storeInstance,
		Logger:   logger,
	})

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.Use(echomw.Recover())
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiService := apiv1.NewAPIV1Service(apiv1.Options{
		Profile:  profile,
		Store:    storeInstance,
		Pipeline: assistantPipeline,
		Feedback: feedbackService,
		Ledger:   ledger,
		Router:   router,
		Logger:   logger,
	})
	apiService.Register(echoServer)

	if err := storeInstance.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &Server{
		Profile:    profile,
		Store:      storeInstance,
		Ledger:     ledger,
		Router:     router,
		Feedback:   feedbackService,
		Pipeline:   assistantPipeline,
		echoServer: echoServer,
		logger:     logger,
	}, nil
}

// Start serves HTTP until the context is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started", "address", address, "mode", s.Profile.Mode)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
	s.logger.Info("server stopped")
}
