// Ingestor service: polls the chat workspace, runs the skill-matching and
// classification pipeline over new messages, and periodically rebuilds
// expertise scores.
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

	"github.com/truffle/expertise-miner/pkg/aggregator"
	"github.com/truffle/expertise-miner/pkg/appconfig"
	"github.com/truffle/expertise-miner/pkg/chat"
	"github.com/truffle/expertise-miner/pkg/classifier"
	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/opsapi"
	"github.com/truffle/expertise-miner/pkg/pipeline"
	"github.com/truffle/expertise-miner/pkg/queue"
	"github.com/truffle/expertise-miner/pkg/scheduler"
	"github.com/truffle/expertise-miner/pkg/storage"
	"github.com/truffle/expertise-miner/pkg/taxonomy"
	"github.com/truffle/expertise-miner/pkg/version"
	"github.com/truffle/expertise-miner/pkg/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "path to a .env file to load")
	flag.Parse()
	appconfig.LoadDotEnv(*envPath)

	cfg, err := appconfig.LoadIngestorConfig()
	if err != nil {
		log.Fatalf("ingestor: configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := storage.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("ingestor: database configuration error: %v", err)
	}
	store, err := storage.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("ingestor: failed to connect to database: %v", err)
	}
	defer store.Close()

	empty, err := store.IsDatabaseEmpty(ctx)
	if err != nil {
		log.Fatalf("ingestor: failed to check database state: %v", err)
	}

	tax, err := taxonomy.LoadDir(cfg.TaxonomyDir)
	if err != nil {
		// Startup error: logged, service continues degraded rather than
		// failing to start.
		slog.Error("skill taxonomy load failed, continuing with an empty taxonomy", "error", err, "dir", cfg.TaxonomyDir)
		tax = taxonomy.New(nil)
	} else if empty {
		if err := store.UpsertSkills(ctx, tax.Skills); err != nil {
			log.Fatalf("ingestor: failed to seed skill taxonomy: %v", err)
		}
	}

	var classify *classifier.Classifier
	if cfg.ClassifyExpertise {
		classify, err = classifier.New(cfg.OpenAIAPIKey, "", cfg.ClassifierModel)
		if err != nil {
			slog.Error("classifier unavailable, falling back to no-op classifier", "error", err)
		}
	}

	chatClient := chat.NewClient(cfg.SlackBotAuthToken).WithBatchConfig(cfg.SlackBatchSize, cfg.SlackBatchWait)

	q := queue.New()
	processor := pipeline.New(tax.Matcher, classifierOrNoop(classify, cfg.ClassifyExpertise), store)
	pool := worker.NewPool(q, processor, cfg.WorkerCount)
	pool.Start(ctx)
	defer pool.Stop()

	agg := aggregator.New(store)

	sched := scheduler.New(scheduler.WrapChatClient(chatClient), store, q, agg, chat.ReplaceUserMentions)
	if err := sched.StartCron(cfg.IngestionCron); err != nil {
		log.Fatalf("ingestor: failed to start scheduler: %v", err)
	}
	defer sched.StopCron()

	loadTax := func() (*taxonomy.Taxonomy, error) { return taxonomy.LoadDir(cfg.TaxonomyDir) }
	ops := opsapi.New(q, pool, agg, sched, store, loadTax)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{Addr: addr, Handler: ops.Engine()}

	go func() {
		slog.Info("ingestor operational API listening", "addr", addr, "version", version.Full())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ingestor: http server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("ingestor shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// classifierOrNoop returns classify itself when expertise classification
// is enabled and a classifier could be constructed; otherwise a no-op
// classifier that returns no evaluations, so the pipeline still runs skill
// extraction but persists no evidence.
func classifierOrNoop(c *classifier.Classifier, enabled bool) pipeline.Classifier {
	if enabled && c != nil {
		return c
	}
	return noopClassifier{}
}

// noopClassifier skips classification entirely and returns no evaluations,
// so no evidence is persisted — used when the OpenAI key is missing or
// CLASSIFY_EXPERTISE=0.
type noopClassifier struct{}

func (noopClassifier) Classify(ctx context.Context, candidate model.Candidate) ([]model.Evaluation, error) {
	return nil, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
