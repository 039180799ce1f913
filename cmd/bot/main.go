// Bot service: receives Slack events, answers expertise questions inline,
// and handles the OAuth install redirect.
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
	"github.com/truffle/expertise-miner/pkg/botapi"
	"github.com/truffle/expertise-miner/pkg/chat"
	"github.com/truffle/expertise-miner/pkg/storage"
	"github.com/truffle/expertise-miner/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "path to a .env file to load")
	flag.Parse()
	appconfig.LoadDotEnv(*envPath)

	cfg, err := appconfig.LoadBotConfig()
	if err != nil {
		log.Fatalf("bot: configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := storage.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("bot: database configuration error: %v", err)
	}
	store, err := storage.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("bot: failed to connect to database: %v", err)
	}
	defer store.Close()

	chatClient := chat.NewClient(cfg.SlackBotAuthToken)
	botUserID, err := chatClient.GetBotExternalID(ctx)
	if err != nil {
		// The service still starts, consistent with the other services'
		// degraded-startup policy: every <@...> mention is still stripped
		// by the generic mention pattern, and bot-authored messages are
		// still filtered by their bot_id.
		slog.Error("failed to resolve bot user ID", "error", err)
	}

	srv := botapi.New(store, store, chatClient, botUserID, cfg.SlackOAuthURL)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Engine()}

	go func() {
		slog.Info("bot listening", "addr", addr, "version", version.Full())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("bot: http server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("bot shutting down")
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
