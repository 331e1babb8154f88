package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinictrack/clinictrack/internal/adherence"
	"github.com/clinictrack/clinictrack/internal/config"
	"github.com/clinictrack/clinictrack/internal/domain/client"
	"github.com/clinictrack/clinictrack/internal/domain/facility"
	"github.com/clinictrack/clinictrack/internal/domain/tracking"
	"github.com/clinictrack/clinictrack/internal/domain/user"
	"github.com/clinictrack/clinictrack/internal/platform/auth"
	"github.com/clinictrack/clinictrack/internal/platform/db"
	"github.com/clinictrack/clinictrack/internal/platform/exchange"
	"github.com/clinictrack/clinictrack/internal/platform/middleware"
	"github.com/clinictrack/clinictrack/internal/platform/sweep"
	"github.com/clinictrack/clinictrack/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "ClinicTrack adherence and follow-up API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func loadAndConnect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func buildPolicy(cfg *config.Config) adherence.Policy {
	policy := adherence.DefaultPolicy()
	if cfg.PickupCadenceMonths > 0 {
		policy.PickupCadenceMonths = cfg.PickupCadenceMonths
	}
	if cfg.ViralLoadCadenceMonths > 0 {
		policy.ViralLoadCadenceMonths = cfg.ViralLoadCadenceMonths
	}
	return policy
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the daily reminder sweep",
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
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			_, pool, err := loadAndConnect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)

			seeded, err := facility.NewService(facility.NewRepoPG(pool)).EnsureDefault(ctx)
			if err != nil {
				return err
			}
			if seeded != nil {
				fmt.Printf("Seeded facility %q (%s).\n", seeded.Name, seeded.ID)
			}
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			_, pool, err := loadAndConnect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the daily reminder sweep once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := context.Background()
			cfg, pool, err := loadAndConnect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			clientRepo := client.NewRepoPG(pool)
			trackingSvc := tracking.NewService(tracking.NewRepoPG(pool))
			sweeper := adherence.NewSweeper(clientRepo, trackingSvc, db.TxRunner{Pool: pool},
				buildPolicy(cfg), cfg.SystemActor(), logger)

			runner := sweep.NewRunner(sweeper.RunDailySweep, cfg.SweepHour, logger, nil)
			created, err := runner.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Created %d reminder(s).\n", created)
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			fullName, _ := cmd.Flags().GetString("full-name")
			role, _ := cmd.Flags().GetString("role")
			facilityID, _ := cmd.Flags().GetString("facility")

			ctx := context.Background()
			_, pool, err := loadAndConnect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			u := &user.User{Username: username, FullName: fullName, Role: role}
			if facilityID != "" {
				id, err := uuid.Parse(facilityID)
				if err != nil {
					return fmt.Errorf("invalid --facility: %w", err)
				}
				u.FacilityID = &id
			}

			svc := user.NewService(user.NewRepoPG(pool))
			if err := svc.Create(ctx, u, password); err != nil {
				return err
			}
			fmt.Printf("Created user %s (%s) with id %s\n", u.Username, u.Role, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("full-name", "", "Display name")
	createCmd.Flags().String("role", user.RoleDataClerk, "Role: admin, data_clerk, clinician or case_worker")
	createCmd.Flags().String("facility", "", "Facility UUID the account is scoped to")
	cmd.AddCommand(createCmd)

	return cmd
}

func runServer() error {
	logger := newLogger()

	ctx := context.Background()
	cfg, pool, err := loadAndConnect(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	policy := buildPolicy(cfg)
	txRunner := db.TxRunner{Pool: pool}
	metrics := telemetry.New()
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	// Services
	facilitySvc := facility.NewService(facility.NewRepoPG(pool))
	trackingSvc := tracking.NewService(tracking.NewRepoPG(pool))
	clientRepo := client.NewRepoPG(pool)
	clientSvc := client.NewService(clientRepo, trackingSvc, txRunner, policy)
	userSvc := user.NewService(user.NewRepoPG(pool))
	exchangeSvc := exchange.NewService(clientSvc, clientSvc, txRunner)

	sweeper := adherence.NewSweeper(clientRepo, trackingSvc, txRunner, policy, cfg.SystemActor(), logger)
	runner := sweep.NewRunner(sweeper.RunDailySweep, cfg.SweepHour, logger, metrics)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(middleware.DefaultBodyLimitConfig()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(metrics.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": "0.1.0"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	public := e.Group("/api/v1")

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("running with development auth, all requests are admin")
		apiV1.Use(auth.DevMiddleware())
	} else {
		apiV1.Use(auth.Middleware(issuer))
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	public.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Domain routes
	facility.NewHandler(facilitySvc).RegisterRoutes(apiV1)
	client.NewHandler(clientSvc).RegisterRoutes(apiV1)
	tracking.NewHandler(trackingSvc).RegisterRoutes(apiV1)
	user.NewHandler(userSvc, issuer).RegisterRoutes(public, apiV1)
	exchange.NewHandler(exchangeSvc).RegisterRoutes(apiV1)

	// Manual sweep trigger for operators
	apiV1.POST("/admin/sweep", func(c echo.Context) error {
		created, err := runner.RunOnce(c.Request().Context())
		if err == adherence.ErrSweepInProgress {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]int{"reminders_created": created})
	}, auth.RequireRole("admin"))

	// Daily sweep trigger
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runner.Start(sweepCtx)
	logger.Info().Int("hour", cfg.SweepHour).Msg("daily sweep scheduled")

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
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
