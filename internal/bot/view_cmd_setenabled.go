package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit"
)

type SourceSwitcher interface {
	SetEnabled(ctx context.Context, id int64, enabled bool) error
}

type setEnabledArgs struct {
	ID int64 `json:"id"`
	// Pointer so a missing field is told apart from false
	Enabled *bool `json:"enabled"`
}

// ViewCmdSetEnabled switches a source on or off without deleting its articles.
// Disabled sources are skipped by ingestion.
func ViewCmdSetEnabled(switcher SourceSwitcher) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args, err := botkit.ParseJSON[setEnabledArgs](update.Message.CommandArguments())
		if err != nil || args.ID <= 0 || args.Enabled == nil {
			return replyText(bot, update, `Usage: /setenabled {"id": 1, "enabled": false}`)
		}

		if err := switcher.SetEnabled(ctx, args.ID, *args.Enabled); err != nil {
			// Storage reports an unknown id as sql.ErrNoRows
			if errors.Is(err, sql.ErrNoRows) {
				return replyText(bot, update, fmt.Sprintf("Source %d not found.", args.ID))
			}
			return err
		}

		state := "enabled"
		if !*args.Enabled {
			state = "disabled"
		}

		return replyText(bot, update, fmt.Sprintf("Source %d %s.", args.ID, state))
	}
}
