package notifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

const (
	// Telegram limit for photo captions
	maxCaptionLength = 1024
	// DefaultSendInterval is used when no positive interval is configured.
	DefaultSendInterval = time.Minute
)

// ArticleProvider is the part of the article storage the notifier reads and updates.
type ArticleProvider interface {
	AllNotPosted(ctx context.Context, since time.Time, limit uint64) ([]model.Article, error)
	MarkPosted(ctx context.Context, id int64) error
}

// Sender is the part of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts freshly ingested articles to a channel, one per interval.
type Notifier struct {
	// Source of articles that were not posted yet
	articles ArticleProvider
	// Telegram client used to post
	bot Sender
	// How often an article is posted
	sendInterval time.Duration
	// How far back not yet posted articles are picked up
	lookupTimeWindow time.Duration
	// Channel the articles are posted to
	channelID int64
}

func New(
	articleProvider ArticleProvider,
	bot Sender,
	sendInterval time.Duration,
	lookupTimeWindow time.Duration,
	channelID int64,
) *Notifier {
	if sendInterval <= 0 {
		log.Printf("[WARN] send interval %s is not positive, using %s", sendInterval, DefaultSendInterval)
		sendInterval = DefaultSendInterval
	}

	return &Notifier{
		articles:         articleProvider,
		bot:              bot,
		sendInterval:     sendInterval,
		lookupTimeWindow: lookupTimeWindow,
		channelID:        channelID,
	}
}

// Start posts one article right away and then one per send interval until ctx is done.
// A failed post is logged and the next tick tries again.
func (n *Notifier) Start(ctx context.Context) error {
	ticker := time.NewTicker(n.sendInterval)
	defer ticker.Stop()

	if err := n.SelectAndSendArticle(ctx); err != nil {
		log.Printf("[ERROR] failed to post article: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := n.SelectAndSendArticle(ctx); err != nil {
				log.Printf("[ERROR] failed to post article: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SelectAndSendArticle posts the newest article that has not been posted yet, if any.
func (n *Notifier) SelectAndSendArticle(ctx context.Context) error {
	topOneArticles, err := n.articles.AllNotPosted(ctx, time.Now().Add(-n.lookupTimeWindow), 1)
	if err != nil {
		return fmt.Errorf("select article: %w", err)
	}

	if len(topOneArticles) == 0 {
		return nil
	}

	article := topOneArticles[0]

	// Marked only after a successful send, so a failed post is retried on the next tick
	if err := n.sendArticle(article); err != nil {
		return fmt.Errorf("send article %d: %w", article.ID, err)
	}

	return n.articles.MarkPosted(ctx, article.ID)
}

// sendArticle posts the article as a photo with caption when it has an image.
// Without an image, or when Telegram rejects the photo, it posts a plain message.
func (n *Notifier) sendArticle(article model.Article) error {
	text := formatArticle(article)

	// Captions are much shorter than messages, a long post goes out as text
	if article.Image != "" && utf8.RuneCountInString(text) <= maxCaptionLength {
		photo := tgbotapi.NewPhoto(n.channelID, tgbotapi.FileURL(article.Image))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdownV2

		_, err := n.bot.Send(photo)
		if err == nil {
			return nil
		}
		log.Printf("[WARN] failed to send photo %s, posting text only: %v", article.Image, err)
	}

	msg := tgbotapi.NewMessage(n.channelID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := n.bot.Send(msg); err != nil {
		return err
	}

	return nil
}

// formatArticle renders the title in bold, the short summary, the summary points and the link.
func formatArticle(article model.Article) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s*", markup.EscapeForMarkdown(article.Title))

	if article.ShortSummary != "" {
		fmt.Fprintf(&b, "\n\n%s", markup.EscapeForMarkdown(article.ShortSummary))
	}

	if points := model.SummaryPoints(article.ExtendedSummary); len(points) > 0 {
		b.WriteString("\n")
		for _, point := range points {
			fmt.Fprintf(&b, "\n• %s", markup.EscapeForMarkdown(point))
		}
	}

	fmt.Fprintf(&b, "\n\n%s", markup.EscapeForMarkdown(article.URL))

	return b.String()
}
