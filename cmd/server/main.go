package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"paycheck-tracker/internal/config"
	"paycheck-tracker/internal/events"
	"paycheck-tracker/internal/handlers"
	"paycheck-tracker/internal/log"
	"paycheck-tracker/internal/models"
	"paycheck-tracker/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: log.ComponentApp, Output: os.Stdout})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	pub, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	if err := seedAdmin(ctx, db, cfg, logger); err != nil {
		return err
	}

	h := handlers.NewHandlers(db, pub, logger.WithComponent(log.ComponentHTTP),
		handlers.WithStrictPayCycle(cfg.StrictPayCycle))

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        setupRouter(h, cfg.CORSOrigins),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			log.FieldOperation, log.OpStartup,
			"addr", srv.Addr,
			"driver", db.Driver(),
			"events", cfg.AMQPURL != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func setupRouter(h *handlers.Handlers, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api", http.StatusFound)
	})
	r.Mount("/api", h.Routes())
	return r
}

// openDatabase connects and migrates the configured database.
func openDatabase(ctx context.Context, cfg *config.Config, logger *log.Logger) (*storage.DB, error) {
	db, err := storage.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.WithComponent(log.ComponentStorage).Info("database ready",
		log.FieldOperation, log.OpMigrate,
		"driver", db.Driver(),
		"schema_version", db.SchemaVersion(),
	)
	return db, nil
}

func newPublisher(cfg *config.Config, logger *log.Logger) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.Nop{}, nil
	}
	pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	logger.WithComponent(log.ComponentAMQP).Info("publishing events", "exchange", cfg.AMQPExchange)
	return pub, nil
}

// seedAdmin creates the configured admin account on an empty database.
func seedAdmin(ctx context.Context, db *storage.DB, cfg *config.Config, logger *log.Logger) error {
	if cfg.AdminUser == "" {
		return nil
	}
	n, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUser + "@example.com"
	}
	p, err := models.NewPatch(map[string]any{
		"username": cfg.AdminUser,
		"email":    email,
		"password": cfg.AdminPassword,
	})
	if err != nil {
		return err
	}
	in, err := models.NewUserIn(p, nil)
	if err != nil {
		return fmt.Errorf("admin user: %w", err)
	}
	u, err := models.NewUser(in)
	if err != nil {
		return fmt.Errorf("admin user: %w", err)
	}
	created, err := db.CreateUser(ctx, u)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.WithComponent(log.ComponentAdmin).Info("admin user created",
		log.FieldUserID, created.ID, "username", created.Username)
	return nil
}
