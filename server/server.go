package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/diamondsistem/offerpricing/internal/config"
	"github.com/diamondsistem/offerpricing/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/catalog", h.Catalog).Methods("GET").Name("catalog")
	r.HandleFunc("/packages/{id}/timing", h.PackageTiming).Methods("GET").Name("packages.timing")

	// 404 handler - must be last
	r.NotFoundHandler = h.RequestLogger(http.HandlerFunc(h.NotFound))
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	api := r.NewRoute().Subrouter()
	api.Use(h.RequireAllowedOrigin)
	api.HandleFunc("/quotes", h.CreateQuote).Methods("POST").Name("quotes.create")
	api.HandleFunc("/quotes/{id}", h.GetQuote).Methods("GET").Name("quotes.get")
	api.HandleFunc("/quotes/{id}/accept", h.AcceptQuote).Methods("POST").Name("quotes.accept")
	api.HandleFunc("/quotes/{id}/payment-plan", h.PaymentPlan).Methods("GET").Name("quotes.payment_plan")
	api.HandleFunc("/selections/check", h.CheckSelection).Methods("POST").Name("selections.check")

	return r
}
