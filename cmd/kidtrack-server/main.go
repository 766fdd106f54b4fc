package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kidtrack/kidtrack/internal/config"
	"github.com/kidtrack/kidtrack/internal/domain/directory"
	"github.com/kidtrack/kidtrack/internal/domain/growth"
	"github.com/kidtrack/kidtrack/internal/domain/scheduling"
	"github.com/kidtrack/kidtrack/internal/platform/auth"
	"github.com/kidtrack/kidtrack/internal/platform/db"
	"github.com/kidtrack/kidtrack/internal/platform/middleware"
)

// childDirectoryAdapter exposes the directory service to the growth domain,
// avoiding a direct import between the two packages.
type childDirectoryAdapter struct {
	svc *directory.Service
}

func (a *childDirectoryAdapter) ChildProfile(ctx context.Context, id uuid.UUID) (*growth.ChildProfile, error) {
	c, err := a.svc.GetChild(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrChildNotFound) {
			return nil, growth.ErrChildNotFound
		}
		return nil, err
	}
	return &growth.ChildProfile{Gender: c.Gender, BirthDate: c.BirthDate}, nil
}

// userDirectoryAdapter exposes the directory service to the scheduling
// domain.
type userDirectoryAdapter struct {
	svc *directory.Service
}

func (a *userDirectoryAdapter) UserInfo(ctx context.Context, id uuid.UUID) (*scheduling.UserInfo, error) {
	u, err := a.svc.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return nil, scheduling.ErrUserNotFound
		}
		return nil, err
	}
	return &scheduling.UserInfo{Role: u.Role, Status: u.Status}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "kidtrack-server",
		Short: "Child growth tracking and scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, ""); err != nil {
				return err
			}
			fmt.Printf("Tenant created successfully. Run migrations with: kidtrack-server migrate up --schema tenant_%s\n", name)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed reference data",
	}

	standardsCmd := &cobra.Command{
		Use:   "standards",
		Short: "Load the growth standard table from a JSON dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.StandardsFile
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read standards file: %w", err)
			}
			var rows []*growth.StandardRow
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("failed to parse standards file: %w", err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("standards file %s contains no rows", file)
			}
			for _, r := range rows {
				if !growth.ValidGender(r.Gender) || !growth.ValidMeasurement(r.Measurement) {
					return fmt.Errorf("invalid row: gender=%q measurement=%q age=%d", r.Gender, r.Measurement, r.AgeMonths)
				}
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := growth.NewStandardRepoPG(pool)
			if err := db.InTx(ctx, pool, func(ctx context.Context) error {
				return repo.ReplaceAll(ctx, rows)
			}); err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}

			fmt.Printf("Seeded %d growth standard rows from %s.\n", len(rows), file)
			return nil
		},
	}
	standardsCmd.Flags().String("file", "", "Path to the standards JSON file (defaults to STANDARDS_FILE)")
	cmd.AddCommand(standardsCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Growth standards are fixed reference data, loaded once per process.
	standardRepo := growth.NewStandardRepoPG(pool)
	standardRows, err := standardRepo.LoadAll(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load growth standards")
	}
	standards := growth.NewStandardCache(standardRows)
	if standards.Len() == 0 {
		logger.Warn().Msg("growth standard table is empty; run: kidtrack-server seed standards")
	} else {
		logger.Info().Int("rows", standards.Len()).Msg("growth standards loaded")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			HMACSecret: []byte(cfg.AuthHMACSecret),
		}))
	}

	// Tenant middleware
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Directory domain
	directorySvc := directory.NewService(
		directory.NewUserRepoPG(pool),
		directory.NewChildRepoPG(pool),
	)
	directory.NewHandler(directorySvc).RegisterRoutes(apiV1)

	// Growth domain
	growthSvc := growth.NewService(
		growth.NewRecordRepoPG(pool),
		standards,
		&childDirectoryAdapter{svc: directorySvc},
	)
	growth.NewHandler(growthSvc).RegisterRoutes(apiV1)

	// Scheduling domain
	schedulingSvc := scheduling.NewService(
		scheduling.NewScheduleRepoPG(pool),
		scheduling.NewAppointmentRepoPG(pool),
		&userDirectoryAdapter{svc: directorySvc},
		scheduling.NewPGTxRunner(pool),
		cfg.MeetingBaseURL,
	)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
