package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/bot"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/bot/middleware"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/config"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/image"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/ingest"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/notifier"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/seed"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/source"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/storage"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/summary"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/trigger"
)

func main() {
	var (
		seedSources = flag.Bool("seed", false, "add the sources listed in the sources file before starting")
		once        = flag.Bool("once", false, "run a single ingestion, print the report and exit")
		reingest    = flag.Bool("reingest", false, "delete all articles, run a single ingestion, print the report and exit")
	)
	flag.Parse()

	cfg := config.Get()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
	if err != nil {
		log.Printf("[ERROR] failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	if err := storage.Ensure(ctx, db); err != nil {
		log.Printf("[ERROR] failed to prepare database: %v", err)
		return
	}

	var (
		articleStorage = storage.NewArticleStorage(db)
		sourceStorage  = storage.NewSourcePostgresStorage(db)
		cache          = trigger.NewWebhookInvalidator(cfg.RevalidateURL, cfg.RevalidateSecret, nil)
	)

	if *seedSources {
		sources, err := seed.Load(cfg.SourcesFile)
		if err != nil {
			log.Printf("[ERROR] failed to load sources: %v", err)
			return
		}

		added, err := seed.Apply(ctx, sourceStorage, sources)
		if err != nil {
			log.Printf("[ERROR] failed to seed sources: %v", err)
			return
		}
		log.Printf("[INFO] seeded %d of %d sources", added, len(sources))
	}

	ingestor := newIngestor(cfg, articleStorage, sourceStorage, cache)

	if *reingest {
		deleted, err := articleStorage.DeleteAll(ctx)
		if err != nil {
			log.Printf("[ERROR] failed to delete articles: %v", err)
			return
		}
		log.Printf("[INFO] deleted %d articles", deleted)
	}

	if *once || *reingest {
		if err := ingestOnce(ctx, ingestor, cache); err != nil {
			log.Printf("[ERROR] ingestion failed: %v", err)
			os.Exit(1)
		}
		return
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(worker(ctx, "ingestor", ingestor.Start))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           trigger.NewServer(ingestor, cache, cfg.IngestSecret).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Printf("[INFO] trigger listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		return server.Shutdown(shutdownCtx)
	})

	if cfg.TelegramBotToken != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Printf("[ERROR] failed to create bot: %v", err)
			return
		}

		newsBot := botkit.New(botAPI, 5*time.Second)
		newsBot.RegisterCmdView("start", bot.ViewCmdStart())
		newsBot.RegisterCmdView("listsources", bot.ViewCmdListSources(sourceStorage))
		newsBot.RegisterCmdView(
			"addsource",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdAddSource(sourceStorage)),
		)
		newsBot.RegisterCmdView(
			"setenabled",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdSetEnabled(sourceStorage)),
		)
		newsBot.RegisterCmdView(
			"ingest",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdIngest(ctx, ingestor, cache)),
		)

		postNotifier := notifier.New(
			articleStorage,
			botAPI,
			cfg.NotificationInterval,
			2*cfg.FetchInterval,
			cfg.TelegramChannelID,
		)

		g.Go(worker(ctx, "bot", newsBot.Run))
		g.Go(worker(ctx, "notifier", postNotifier.Start))
	} else {
		log.Printf("[INFO] telegram bot token is not set, bot and notifier are disabled")
	}

	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func newIngestor(
	cfg config.Config,
	articles *storage.ArticlePostgresStorage,
	sources *storage.SourcePostgresStorage,
	cache trigger.CacheInvalidator,
) *ingest.Ingestor {
	var (
		fetcher = source.NewHTTPFetcher(&http.Client{}, source.RetryPolicy{
			Retries:   cfg.FeedRetries,
			BaseDelay: cfg.FeedRetryDelay,
			Timeout:   cfg.FeedTimeout,
		})
		parser = source.NewParser()
		images = image.NewResolver(&http.Client{}, image.Options{
			ScrapeLimit: cfg.ScrapeLimit,
			Concurrency: cfg.ScrapeConcurrency,
			Timeout:     cfg.ScrapeTimeout,
		})
	)

	var ai summary.AIClient
	if cfg.OpenAIKey != "" {
		ai = summary.NewOpenAISummarizer(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIPrompt)
	} else {
		log.Printf("[INFO] openai key is not set, using local summaries only")
	}

	return ingest.New(
		articles,
		sources,
		func(m model.Source) ingest.Source {
			return source.NewRSSSourceFromModel(m, fetcher, parser)
		},
		summary.NewSummarizer(ai, cfg.AITimeout),
		images,
		ingest.Options{
			FetchInterval:   cfg.FetchInterval,
			FilterKeywords:  cfg.FilterKeywords,
			MaxItemsPerFeed: cfg.MaxItemsPerFeed,
			AfterRun: func(ctx context.Context, reports []model.IngestReport) {
				invalidateIfChanged(ctx, cache, reports)
			},
		},
	)
}

func ingestOnce(ctx context.Context, ingestor *ingest.Ingestor, cache trigger.CacheInvalidator) error {
	reports, err := ingestor.IngestAll(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	os.Stdout.Write(append(out, '\n'))

	if err := cache.Invalidate(ctx, trigger.ArticlesTag); err != nil {
		log.Printf("[WARN] failed to invalidate cache: %v", err)
	}

	return nil
}

func invalidateIfChanged(ctx context.Context, cache trigger.CacheInvalidator, reports []model.IngestReport) {
	for _, r := range reports {
		if r.NewArticles > 0 {
			if err := cache.Invalidate(ctx, trigger.ArticlesTag); err != nil {
				log.Printf("[WARN] failed to invalidate cache: %v", err)
			}
			return
		}
	}
}

// worker adapts a long-running Start/Run method; stopping on shutdown is not an error.
func worker(ctx context.Context, name string, run func(context.Context) error) func() error {
	return func() error {
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		log.Printf("[INFO] %s stopped", name)
		return nil
	}
}
