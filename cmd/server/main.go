// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snakearena/server/internal/config"
	"github.com/snakearena/server/internal/models"
	"github.com/snakearena/server/internal/session"
	"github.com/snakearena/server/internal/transport"
)

func main() {
	cfg := &config.Config{}
	cmd := config.NewCommand(cfg, run)
	if err := cmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	logger := logrus.New()
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	defaults := models.DefaultGameSettings()
	defaults.BoardSize = cfg.BoardSize
	defaults.GameSpeedMs = int(cfg.GameSpeed / time.Millisecond)

	mgr := session.NewManager(logger, cfg.IdleTimeout, defaults)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go mgr.RunSweeper(sweepCtx, cfg.LobbySweepInterval)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      transport.NewRouter(mgr, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.Addr())
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigs:
		logger.Infof("received %v, shutting down", sig)
		mgr.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
