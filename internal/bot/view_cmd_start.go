package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit"
)

const startText = `News feed ingestor.

/listsources - show feed sources
/addsource {"name": "...", "url": "..."} - add a feed source
/setenabled {"id": 1, "enabled": false} - switch a source on or off
/ingest - pull all enabled sources now`

func ViewCmdStart() botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if _, err := bot.Send(tgbotapi.NewMessage(update.Message.Chat.ID, startText)); err != nil {
			return err
		}

		return nil
	}
}
