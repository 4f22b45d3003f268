package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tweetlens/internal/adapters/announce"
	"tweetlens/internal/adapters/browser"
	"tweetlens/internal/adapters/cache"
	"tweetlens/internal/adapters/store"
	"tweetlens/internal/adapters/web"
	"tweetlens/internal/config"
	"tweetlens/internal/pipeline"
	"tweetlens/internal/usecases"
	"tweetlens/pkg/log"
)

var (
	version = "dev"

	selectorsPath string
	dbPath        string
	logLevel      string
)

func main() {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "tweetlens",
		Short: "Detects and extracts tweets from live X/Twitter pages",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&selectorsPath, "selectors", "config/selectors.yaml", "selector configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", os.Getenv("TWEETLENS_DB"), "sqlite archive path (empty disables the archive)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "debug, info, warn, error")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := log.Info
	if logLevel != "" {
		if parsed, err := log.ParseLevel(logLevel); err == nil {
			level = parsed
		}
	}
	log.SetDefault(log.New(level, log.NewStdout()))
}

// loadConfig falls back to built-in defaults when the selectors file is
// absent, so the binary works out of a bare checkout.
func loadConfig() *config.Config {
	cfg, err := config.Load(selectorsPath)
	if err != nil {
		log.Default().Warn("selector config not loaded, using defaults",
			"path", selectorsPath, "error", err)
		return config.Default()
	}
	return cfg
}

// buildSinks assembles the optional durable sinks: the sqlite archive
// and the NATS announcer.
func buildSinks() ([]pipeline.Sink, *store.Store, func()) {
	var sinks []pipeline.Sink
	var archive *store.Store
	var closers []func()

	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			log.Default().Error("archive unavailable", "path", dbPath, "error", err)
		} else {
			archive = st
			sinks = append(sinks, st)
			closers = append(closers, func() { st.Close() })
			log.Default().Info("archive enabled", "path", dbPath)
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		pub, err := announce.Connect(natsURL)
		if err != nil {
			log.Default().Error("announcer unavailable", "url", natsURL, "error", err)
		} else {
			sinks = append(sinks, pub)
			closers = append(closers, pub.Close)
		}
	}

	return sinks, archive, func() {
		for _, c := range closers {
			c()
		}
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			pool, err := browser.NewPool()
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			defer pool.Close()

			sinks, archive, closeSinks := buildSinks()
			defer closeSinks()

			scanSvc := usecases.NewScanService(pool, cfg, sinks...)

			var archiveLookup usecases.Archive
			var lister web.TweetLister
			if archive != nil {
				archiveLookup = archive
				lister = archive
			}
			getTweetSvc := usecases.NewGetTweetService(cache.New(cacheTTL()), archiveLookup, scanSvc)

			limiter := web.NewRateLimiter(10, time.Minute)
			handlers := web.NewHandlers(scanSvc, getTweetSvc, lister, limiter)

			app := fiber.New(fiber.Config{
				AppName:               "tweetlens",
				DisableStartupMessage: true,
			})
			app.Use(recover.New())
			app.Use(requestid.New(web.RequestIDConfig()))
			app.Use(web.RequestIDToContextMiddleware())
			app.Use(web.RequestLoggerMiddleware())

			web.SetupRoutes(app, handlers)

			port := os.Getenv("PORT")
			if port == "" {
				port = "3000"
			}
			log.Default().Info("listening", "port", port, "version", version)
			return app.Listen(":" + port)
		},
	}
}

func scanCmd() *cobra.Command {
	var seconds int

	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Scan a page once and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			if !web.ValidScanURL(url) {
				return fmt.Errorf("not a scannable URL: %s", url)
			}

			cfg := loadConfig()

			pool, err := browser.NewPool()
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			defer pool.Close()

			sinks, _, closeSinks := buildSinks()
			defer closeSinks()

			scanSvc := usecases.NewScanService(pool, cfg, sinks...)

			result, err := scanSvc.ScanPage(context.Background(), url, time.Duration(seconds)*time.Second)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().IntVar(&seconds, "seconds", 15, "observation window in seconds")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tweetlens", version)
		},
	}
}

func cacheTTL() time.Duration {
	raw := os.Getenv("CACHE_TTL_MINUTES")
	if raw == "" {
		return 5 * time.Minute
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		log.Default().Warn("invalid CACHE_TTL_MINUTES, using default", "value", raw)
		return 5 * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}
