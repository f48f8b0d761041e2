// Package restserver implements the waterlog HTTP API: session login,
// reading CRUD, and the statistics endpoints.
package restserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/waterlogd/waterlog/internal/log"
	"github.com/waterlogd/waterlog/internal/store"
	"github.com/waterlogd/waterlog/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	httpCfg  config.HTTPData
	authCfg  config.AuthData
	store    store.ReadingStore
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
	sessions *sessionStore
	now      func() time.Time
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, httpCfg config.HTTPData, authCfg config.AuthData, readings store.ReadingStore, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:      ctx,
		wg:       wg,
		httpCfg:  httpCfg,
		authCfg:  authCfg,
		store:    readings,
		logger:   logger,
		sessions: newSessionStore(),
		now:      time.Now,
	}

	if ctrl.httpCfg.ListenAddr == "" {
		logger.Info("http.listen_addr not provided; defaulting to :8080")
		ctrl.httpCfg.ListenAddr = ":8080"
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = ctrl.httpCfg.ListenAddr
	ctrl.Server.Handler = ctrl.setupRouter()

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.Use(c.loggingMiddleware)
	router.Use(corsMiddleware)

	// Unauthenticated endpoints
	router.HandleFunc("/api/health", c.handlers.GetHealth).Methods("GET")
	router.HandleFunc("/api/login", c.handlers.Login).Methods("POST")

	// Everything else requires a session token
	api := router.PathPrefix("/api").Subrouter()
	api.Use(c.authMiddleware)
	api.HandleFunc("/readings", c.handlers.ListReadings).Methods("GET")
	api.HandleFunc("/readings", c.handlers.CreateReading).Methods("POST")
	api.HandleFunc("/readings/{id}", c.handlers.GetReading).Methods("GET")
	api.HandleFunc("/readings/{id}", c.handlers.UpdateReading).Methods("PUT")
	api.HandleFunc("/readings/{id}", c.handlers.DeleteReading).Methods("DELETE")
	api.HandleFunc("/stats", c.handlers.GetStats).Methods("GET")
	api.HandleFunc("/stats/projection", c.handlers.GetProjection).Methods("GET")

	return router
}

// loggingMiddleware logs each request with timing
func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Infof("%s %s %s %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
