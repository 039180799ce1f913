// Expert API service: serves the ranked-expert search endpoint over the
// scores the Ingestor maintains.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/truffle/expertise-miner/pkg/appconfig"
	"github.com/truffle/expertise-miner/pkg/expertapi"
	"github.com/truffle/expertise-miner/pkg/storage"
	"github.com/truffle/expertise-miner/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "path to a .env file to load")
	flag.Parse()
	appconfig.LoadDotEnv(*envPath)

	cfg, err := appconfig.LoadExpertAPIConfig()
	if err != nil {
		log.Fatalf("expertapi: configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := storage.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("expertapi: database configuration error: %v", err)
	}
	store, err := storage.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("expertapi: failed to connect to database: %v", err)
	}
	defer store.Close()

	srv := expertapi.New(store)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Engine()}

	go func() {
		slog.Info("expert API listening", "addr", addr, "version", version.Full())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("expertapi: http server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("expert API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
