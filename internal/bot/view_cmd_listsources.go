package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

type SourceLister interface {
	Sources(ctx context.Context) ([]model.Source, error)
}

// ViewCmdListSources replies with every source, enabled or not.
func ViewCmdListSources(lister SourceLister) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		sources, err := lister.Sources(ctx)
		if err != nil {
			return err
		}

		reply := tgbotapi.NewMessage(update.Message.Chat.ID, formatSourceList(sources))
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		if _, err := bot.Send(reply); err != nil {
			return err
		}

		return nil
	}
}

func formatSourceList(sources []model.Source) string {
	infos := lo.Map(sources, func(source model.Source, _ int) string {
		return formatSource(source)
	})

	return fmt.Sprintf(
		"Sources \\(total %d\\):\n\n%s",
		len(sources),
		strings.Join(infos, "\n\n"),
	)
}

// formatSource renders one source for MarkdownV2, user supplied values are escaped.
func formatSource(source model.Source) string {
	state := "on"
	if !source.Enabled {
		state = "off"
	}

	return fmt.Sprintf(
		"🌐 *%s*\nID: `%d`\nFeed URL: %s\nEnabled: %s",
		markup.EscapeForMarkdown(source.Name),
		source.ID,
		markup.EscapeForMarkdown(source.FeedURL),
		state,
	)
}
