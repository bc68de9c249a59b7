// Package server wires the application together: it builds the store, the
// services, and the handlers, and maps the routes. This is the composition
// root: every dependency is constructed here (or in main) and injected;
// nothing in the tree reaches for a global.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dmoren/ludoteca/internal/auth"
	"github.com/dmoren/ludoteca/internal/handler"
	"github.com/dmoren/ludoteca/internal/middleware"
	sqliteRepo "github.com/dmoren/ludoteca/internal/repository/sqlite"
	"github.com/dmoren/ludoteca/internal/service"
)

// Config holds everything the server needs, loaded in main from the
// environment and passed here as one value.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string
	DBPath      string

	// SessionSecret signs the session JWTs. Required.
	SessionSecret string

	// GitHub OAuth app credentials. When empty, the GitHub login is not
	// offered and the fallback login (below) is the only way in.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Fallback login account: a username plus a bcrypt password hash.
	// Both empty disables it.
	LocalUser         string
	LocalPasswordHash string
}

// Server owns the router and the database connection; Start runs it and
// closes the store on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency graph:
//
//	sqlite.DB → IdentityService + CollectionService → page/auth handlers → routes
//
// Handlers never see the store and services never see HTTP; each layer gets
// only the interfaces it needs.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth not configured, only the local fallback login is available")
	}

	identity := service.NewIdentityService(
		s.db, tokens, auth.NewPasswordService(),
		s.config.LocalUser, s.config.LocalPasswordHash,
		s.logger,
	)
	collection := service.NewCollectionService(s.db, s.db, s.logger)

	renderer, err := handler.NewRenderer(s.config.TemplateDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	homeHandler := handler.NewHomeHandler(renderer, identity, github != nil, s.logger)
	collectionHandler := handler.NewCollectionHandler(renderer, collection, identity, s.logger)
	gameHandler := handler.NewGameHandler(renderer, collection, identity, s.logger)
	authHandler := handler.NewAuthHandler(github, identity, s.logger)

	// Home is public but session-aware: logged-in visitors are bounced
	// straight to the collection.
	s.router.With(auth.OptionalAuth(tokens)).Get("/", homeHandler.HandleHome)

	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	s.router.Post("/auth/login", authHandler.HandleLocalLogin)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	// Everything below requires a session; anonymous requests are
	// redirected to the login page.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/coleccion", collectionHandler.HandleCollection)
		r.Get("/add", gameHandler.HandleAddForm)
		r.Post("/add", gameHandler.HandleAddSubmit)
		r.Get("/del", gameHandler.HandleDelete)
		r.Get("/edit", gameHandler.HandleEditForm)
		r.Post("/edit", gameHandler.HandleEditSubmit)
		r.Get("/cover", gameHandler.HandleCover)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the store.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
