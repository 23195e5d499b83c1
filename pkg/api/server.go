package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/schema"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/store"
	"go.uber.org/zap"
)

// Server exposes the collection store over HTTP and WebSocket
type Server struct {
	cfg       config.APIConfig
	store     *store.MemoryStore
	validator *schema.Validator
	metrics   *metrics.Collector
	logger    *zap.Logger

	upgrader websocket.Upgrader
	router   chi.Router
	server   *http.Server
}

// NewServer creates the API server. collector may be nil.
func NewServer(cfg config.APIConfig, st *store.MemoryStore, collector *metrics.Collector, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		store:   st,
		metrics: collector,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	if cfg.ValidateSchema {
		v, err := schema.NewValidator()
		if err != nil {
			return nil, fmt.Errorf("failed to compile record schemas: %w", err)
		}
		s.validator = v
	}

	if collector != nil {
		st.SetSizeObserver(func(c model.Collection, size int) {
			collector.StoreRecords.WithLabelValues(string(c)).Set(float64(size))
		})
		for name, size := range st.Stats() {
			collector.StoreRecords.WithLabelValues(name).Set(float64(size))
		}
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/api/{collection}", func(r chi.Router) {
		r.Use(s.collectionCtx)
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Post("/batch", s.batch)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.get)
			r.Patch("/", s.update)
			r.Delete("/", s.remove)
		})
	})

	r.With(s.collectionCtx).Get("/ws/{collection}", s.ingestWebSocket)

	return r
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving on the configured address
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("Starting collection API", zap.String("address", s.cfg.Address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Collection API error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Stopping collection API")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
