package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/trigger"
)

type Ingester interface {
	IngestAll(ctx context.Context) ([]model.IngestReport, error)
}

// ViewCmdIngest runs an ingestion in the background and replies with the report when it is done.
// The bot keeps serving other commands meanwhile. The run is bounded by ctx, the bot lifetime,
// not by the short per-command context. Only one run started from the bot is allowed at a time.
func ViewCmdIngest(ctx context.Context, ingester Ingester, cache trigger.CacheInvalidator) botkit.ViewFunc {
	var running atomic.Bool

	return func(_ context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if !running.CompareAndSwap(false, true) {
			return replyText(bot, update, "Ingestion is already running.")
		}

		if err := replyText(bot, update, "Ingestion started."); err != nil {
			running.Store(false)
			return err
		}

		chatID := update.Message.Chat.ID

		go func() {
			defer running.Store(false)

			text := markup.EscapeForMarkdown("Ingestion failed, see logs.")
			if reports, err := ingestAndInvalidate(ctx, ingester, cache); err != nil {
				log.Printf("[ERROR] ingestion from bot failed: %v", err)
			} else {
				text = formatReports(reports)
			}

			reply := tgbotapi.NewMessage(chatID, text)
			reply.ParseMode = tgbotapi.ModeMarkdownV2

			if _, err := bot.Send(reply); err != nil {
				log.Printf("[ERROR] failed to send ingest report: %v", err)
			}
		}()

		return nil
	}
}

// ingestAndInvalidate runs one ingestion and then drops the cached article list,
// the same way the HTTP trigger does. A failed invalidation does not fail the run.
func ingestAndInvalidate(ctx context.Context, ingester Ingester, cache trigger.CacheInvalidator) ([]model.IngestReport, error) {
	reports, err := ingester.IngestAll(ctx)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Invalidate(ctx, trigger.ArticlesTag); err != nil {
			log.Printf("[WARN] failed to invalidate %q after ingestion: %v", trigger.ArticlesTag, err)
		}
	}

	return reports, nil
}

func formatReports(reports []model.IngestReport) string {
	var (
		b     strings.Builder
		total model.IngestReport
	)

	for _, r := range reports {
		total.NewArticles += r.NewArticles
		total.Skipped += r.Skipped
		total.Errors += r.Errors

		fmt.Fprintf(&b, "*%s*: %d new, %d skipped, %d errors\n",
			markup.EscapeForMarkdown(r.Source), r.NewArticles, r.Skipped, r.Errors)
	}

	fmt.Fprintf(&b, "\nTotal: %d new, %d skipped, %d errors", total.NewArticles, total.Skipped, total.Errors)

	return b.String()
}
