package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/learnlog/internal/api"
	"github.com/jon4hz/learnlog/internal/config"
	"github.com/jon4hz/learnlog/internal/database"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the learnlog server",
	Long:  `Start the learnlog web server. This is also what runs when no subcommand is given.`,
	Example: `learnlog serve --config config.yml
learnlog serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg := loadConfig()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedAdmin(ctx, db, cfg.Admin); err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}

	server, err := api.New(cfg, db, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info("learnlog started successfully")
	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		return
	}
	log.Info("learnlog stopped")
}

// seedAdmin creates the bootstrap admin account if it is enabled and missing.
func seedAdmin(ctx context.Context, db database.DB, cfg *config.AdminConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	created, err := db.EnsureAdmin(ctx, database.NewUser{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
	})
	if err != nil {
		return err
	}
	if created {
		log.Info("created admin account", "username", cfg.Username)
	} else {
		log.Debug("admin account already exists", "username", cfg.Username)
	}
	return nil
}
