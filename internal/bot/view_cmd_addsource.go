package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/storage"
)

// SourceStorage is what /addsource needs from the source storage.
type SourceStorage interface {
	Add(ctx context.Context, source model.Source) (int64, error)
}

// Arguments of /addsource, passed as JSON after the command
type addSourceArgs struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (a addSourceArgs) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("name is required")
	}

	u, err := url.Parse(strings.TrimSpace(a.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be an absolute http(s) link")
	}

	return nil
}

// ViewCmdAddSource adds a feed source, e.g. /addsource {"name": "Go Blog", "url": "https://go.dev/blog/feed.atom"}.
func ViewCmdAddSource(sources SourceStorage) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		// CommandArguments is everything after the command itself
		args, err := botkit.ParseJSON[addSourceArgs](update.Message.CommandArguments())
		if err == nil {
			err = args.validate()
		}
		if err != nil {
			return replyText(bot, update, fmt.Sprintf("Usage: /addsource {\"name\": \"...\", \"url\": \"...\"}\n%v", err))
		}

		// New sources start enabled and are picked up by the next ingestion run
		sourceID, err := sources.Add(ctx, model.Source{
			Name:    strings.TrimSpace(args.Name),
			FeedURL: strings.TrimSpace(args.URL),
			Enabled: true,
		})
		if err != nil {
			if errors.Is(err, storage.ErrSourceExists) {
				return replyText(bot, update, "A source with this feed URL already exists.")
			}
			return err
		}

		reply := tgbotapi.NewMessage(
			update.Message.Chat.ID,
			fmt.Sprintf("Source added with ID: `%d`\\. Use this ID to manage the source\\.", sourceID),
		)
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		if _, err := bot.Send(reply); err != nil {
			return err
		}

		return nil
	}
}

func replyText(bot *tgbotapi.BotAPI, update tgbotapi.Update, text string) error {
	if _, err := bot.Send(tgbotapi.NewMessage(update.Message.Chat.ID, text)); err != nil {
		return err
	}
	return nil
}
