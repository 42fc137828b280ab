package botkit

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ViewFunc handles one bot command.
// update is any event Telegram delivers when a user talks to the bot,
// bot is the client through which the view answers.
type ViewFunc func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error

type Bot struct {
	// Telegram API client
	api *tgbotapi.BotAPI
	// Views by command name, without the leading slash
	cmdViews map[string]ViewFunc
	// How long a single command may run
	viewTimeout time.Duration
}

func New(api *tgbotapi.BotAPI, viewTimeout time.Duration) *Bot {
	if viewTimeout <= 0 {
		viewTimeout = 5 * time.Second
	}

	return &Bot{
		api:         api,
		cmdViews:    make(map[string]ViewFunc),
		viewTimeout: viewTimeout,
	}
}

// RegisterCmdView binds a view to a command. Registering the same command again replaces the view.
func (b *Bot) RegisterCmdView(cmd string, view ViewFunc) {
	b.cmdViews[cmd] = view
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	// Stops the long polling goroutine of the API client
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			// Every command runs with its own deadline
			updateCtx, updateCancel := context.WithTimeout(ctx, b.viewTimeout)
			b.handleUpdate(updateCtx, update)
			updateCancel()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleUpdate routes a command to its view and reports view errors back to the chat.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// A panic in one view must not bring the whole bot down
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[ERROR] panic recovered: %v\n%s", p, string(debug.Stack()))
		}
	}()

	// Plain messages, edits and channel posts are not commands
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	// Command() strips the slash, the bot mention and the arguments
	view, ok := b.cmdViews[update.Message.Command()]
	if !ok {
		return
	}

	if err := view(ctx, b.api, update); err != nil {
		log.Printf("[ERROR] failed to handle /%s: %v", update.Message.Command(), err)

		if _, err := b.api.Send(
			tgbotapi.NewMessage(update.Message.Chat.ID, "internal error"),
		); err != nil {
			log.Printf("[ERROR] failed to send message: %v", err)
		}
	}
}
