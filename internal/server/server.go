package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bank-ledger/internal/auth"
	"bank-ledger/internal/config"
	"bank-ledger/internal/domain"
	"bank-ledger/internal/handler"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg         *config.Config
	router      *mux.Router
	server      *http.Server
	db          *sql.DB
	authService *service.AuthService
	logger      *slog.Logger
	port        string

	stopSweeper context.CancelFunc
	sweeperDone sync.WaitGroup
}

// NewServer opens and migrates the database, provisions the bootstrap root
// user when configured, and wires the router.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, dialect, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(ctx, db, dialect, logger); err != nil {
		db.Close()
		return nil, err
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		if secret, err = auth.RandomSecret(); err != nil {
			db.Close()
			return nil, err
		}
		logger.Warn("JWT_SECRET is not set; tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenIssuer(secret, cfg.JWTIssuer)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize store (Unit of Work)
	store := repository.NewStore(db, dialect, logger).WithMaxRetries(cfg.TxMaxRetries)

	authService := service.NewAuthService(store, tokens, cfg.TokenTTL, logger)
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, logger)

	if cfg.BootstrapRootUsername != "" {
		user, created, err := authService.EnsureUser(ctx, cfg.BootstrapRootUsername, cfg.BootstrapRootPassword, domain.RoleRoot)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap root user: %w", err)
		}
		logger.Info("Bootstrap root user ready", "user_id", user.ID, "created", created)
	}

	s := &Server{
		cfg:         cfg,
		db:          db,
		authService: authService,
		logger:      logger,
	}
	s.router = s.routes(
		handler.NewAuthHandler(authService, logger),
		handler.NewAccountHandler(accountService, logger),
		handler.NewTransactionHandler(transactionService, logger),
	)
	return s, nil
}

func (s *Server) routes(authHandler *handler.AuthHandler, accountHandler *handler.AccountHandler, transactionHandler *handler.TransactionHandler) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handler.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handler.MethodNotAllowed)

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(s.logger))
	router.Use(metricsMiddleware)
	router.Use(mux.CORSMethodMiddleware(router))
	router.Use(corsMiddleware(s.cfg.CORSAllowedOrigins))
	router.Use(timeoutMiddleware(s.cfg.RequestTimeout))

	// Public routes
	router.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Everything below needs a bearer token. The routes stay on the root
	// router so CORSMethodMiddleware can see their methods.
	requireAuth := handler.RequireAuth(s.authService, s.logger)
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	router.Handle("/logout", authed(authHandler.Logout)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/current-user", authed(authHandler.CurrentUser)).Methods(http.MethodGet, http.MethodOptions)

	// Account routes
	router.Handle("/accounts", authed(accountHandler.CreateAccount)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/accounts/{account_id}", authed(accountHandler.GetAccount)).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/accounts/{account_id}", authed(accountHandler.UpdateAccount)).Methods(http.MethodPut)
	router.Handle("/accounts/{account_id}", authed(accountHandler.DeleteAccount)).Methods(http.MethodDelete)
	router.Handle("/accounts/{account_id}/balance-logs", authed(accountHandler.BalanceLogs)).Methods(http.MethodGet, http.MethodOptions)

	// Transaction routes
	router.Handle("/transactions", authed(transactionHandler.CreateTransaction)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/transactions/{account_id}", authed(transactionHandler.History)).Methods(http.MethodGet, http.MethodOptions)

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Check database connectivity in health check
	if err := s.db.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// sweepSessions deletes expired sessions until ctx is cancelled.
func (s *Server) sweepSessions(ctx context.Context, interval time.Duration) {
	defer s.sweeperDone.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.authService.SweepSessions(ctx)
			if err != nil {
				s.logger.Error("Session sweep failed", "error", err)
				continue
			}
			sessionsSwept.Add(float64(deleted))
		}
	}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	sweepCtx, cancel := context.WithCancel(context.Background())
	s.stopSweeper = cancel
	s.sweeperDone.Add(1)
	go s.sweepSessions(sweepCtx, s.cfg.SessionSweepInterval)

	return s.port, nil
}

// Stop drains in-flight requests, stops the sweeper and closes the database.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	if s.stopSweeper != nil {
		s.stopSweeper()
		s.sweeperDone.Wait()
	}

	if s.db != nil {
		s.db.Close()
	}
	return err
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger returns the process logger: JSON on stdout, or a discard logger
// when the server runs on an ephemeral port under test.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.ServerPort == "0" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	server, err := NewServer(cfg, NewLogger(cfg))
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
