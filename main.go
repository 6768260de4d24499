package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/doctors-portal/config"
	"github.com/meinhoongagan/doctors-portal/controllers"
	"github.com/meinhoongagan/doctors-portal/cron"
	"github.com/meinhoongagan/doctors-portal/db"
	"github.com/meinhoongagan/doctors-portal/metrics"
	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/redis"
	"github.com/meinhoongagan/doctors-portal/routes"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// backend is a store usable by the server and the maintenance commands.
type backend interface {
	controllers.Store
	SeedCatalog(ctx context.Context, catalog []models.AppointmentOption, replace bool) (int, error)
	SetAllPrices(ctx context.Context, price float64) (*models.UpdateResult, error)
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "doctors-portal",
		Short:        "Doctors portal booking API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(setPriceCmd())

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
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			mongoStore, ok := store.(*db.MongoStore)
			if !ok {
				logger.Info().Msg("memory store has nothing to migrate")
				return nil
			}
			return mongoStore.Migrate(cmd.Context())
		},
	}
}

func seedCmd() *cobra.Command {
	var file string
	var replace bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the appointment option catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			catalog, err := readCatalog(file)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			n, err := store.SeedCatalog(cmd.Context(), catalog, replace)
			if err != nil {
				return err
			}
			logger.Info().Int("options", n).Bool("replace", replace).Msg("catalog seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalog to load (defaults to the built-in catalog)")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete the existing catalog first")
	return cmd
}

func setPriceCmd() *cobra.Command {
	var price float64

	cmd := &cobra.Command{
		Use:   "set-price",
		Short: "Set one price on every appointment option",
		RunE: func(cmd *cobra.Command, args []string) error {
			if price < 0 {
				return fmt.Errorf("price must not be negative")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := store.SetAllPrices(cmd.Context(), price)
			if err != nil {
				return err
			}
			logger.Info().Int64("matched", res.MatchedCount).Int64("modified", res.ModifiedCount).Float64("price", price).Msg("prices updated")
			return nil
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "new price for every option")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func setup() (*config.Config, zerolog.Logger, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		return nil, logger, err
	}
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	return cfg, logger, nil
}

func readCatalog(file string) ([]models.AppointmentOption, error) {
	if file == "" {
		return db.DefaultCatalog()
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return db.LoadCatalog(f)
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (backend, func(), error) {
	if cfg.Store == config.StoreMemory {
		store := db.NewMemoryStore()
		catalog, err := db.DefaultCatalog()
		if err != nil {
			return nil, nil, err
		}
		if _, err := store.SeedCatalog(ctx, catalog, true); err != nil {
			return nil, nil, err
		}
		logger.Warn().Msg("using the in-memory store; data is lost on exit")
		return store, func() {}, nil
	}

	client, err := db.Connect(ctx, cfg.DBURI, cfg.DBTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := db.Disconnect(client, cfg.DBTimeout); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}
	return db.NewMongoStore(client, cfg.DBName, cfg.DBTransactions, logger), closeStore, nil
}

func runServer() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open store")
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	if cfg.StripeKey == "" {
		logger.Warn().Msg("STRIPE_SK not set; payment intents will be rejected by the gateway")
	}

	handler := controllers.NewHandler(controllers.Handler{
		Store:    store,
		Tokens:   utils.NewTokenIssuer(cfg.AccessToken, cfg.TokenTTL),
		Payments: utils.NewStripeGateway(cfg.StripeKey),
		Metrics:  m,
		Log:      logger,
	})

	if cfg.CloudinaryEnabled() {
		uploader, err := utils.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			return err
		}
		handler.Images = uploader
	}

	if cfg.MailEnabled() {
		mailer := utils.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass)
		handler.Mailer = mailer

		ledger, closeLedger, err := reminderLedger(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeLedger()

		scheduler, err := cron.Start(cfg.ReminderCron, &cron.Reminder{
			Bookings:   store,
			Ledger:     ledger,
			Mailer:     mailer,
			DateLayout: cfg.AppointmentDateLayout,
			Metrics:    m,
			Log:        logger,
		})
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	} else {
		logger.Info().Msg("SMTP not configured; booking emails and reminders are disabled")
	}

	app := routes.New(routes.Options{
		Handler:     handler,
		TokenSecret: cfg.AccessToken,
		CORSOrigins: cfg.AllowedOrigins(),
		Metrics:     m,
		Gatherer:    registry,
		Log:         logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("Doctor portal server running")
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownErr := app.ShutdownWithTimeout(10 * time.Second)
	if shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("server shutdown failed")
	}
	if !handler.WaitForEmails(10 * time.Second) {
		logger.Warn().Msg("gave up waiting for booking emails")
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	logger.Info().Msg("server stopped")
	return nil
}

func reminderLedger(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cron.Ledger, func(), error) {
	if cfg.RedisAddr == "" {
		return cron.NewMemoryLedger(), func() {}, nil
	}
	client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	closeLedger := func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close Redis client")
		}
	}
	return redis.NewReminderLedger(client, 72*time.Hour), closeLedger, nil
}
