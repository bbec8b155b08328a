// Package bot is the Telegram front end: plain messages are chat questions,
// and a few commands add expenses or show summaries.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"expensechat/internal/aggregate"
	"expensechat/internal/core"
	"expensechat/internal/log"
	"expensechat/internal/reply"
	"expensechat/internal/services"
)

// Ports the bot depends on.
type (
	ChatAnswerer interface {
		Answer(ctx context.Context, owner, text string) (services.Answer, error)
	}

	ExpenseCreator interface {
		Create(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	SummaryProvider interface {
		Summary(ctx context.Context, owner string, g aggregate.Granularity) (aggregate.Summary, error)
	}

	Categorizer interface {
		Categorize(text string) core.Category
	}

	// Sender delivers outgoing messages; *tgbotapi.BotAPI satisfies it.
	Sender interface {
		Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	}
)

const startText = "Hi! Ask me about your spending, for example 'Total travel expenses today'.\n\n" +
	"/add <amount> <title> records an expense\n" +
	"/summary [daily|weekly|monthly|yearly] groups your expenses\n" +
	"/categorize <text> guesses a category\n" +
	"/help shows this message"

type Bot struct {
	api         *tgbotapi.BotAPI
	sender      Sender
	chat        ChatAnswerer
	expenses    ExpenseCreator
	summaries   SummaryProvider
	categorizer Categorizer
	formatter   reply.Formatter
	logger      *log.Logger
}

// Services groups what the bot talks to.
type Services struct {
	Chat        ChatAnswerer
	Expenses    ExpenseCreator
	Summaries   SummaryProvider
	Categorizer Categorizer
	Formatter   reply.Formatter
}

// NewBot connects to the Telegram API with token.
func NewBot(token string, svc Services, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	b := newBot(api, svc, logger)
	b.api = api
	b.logger.Info("Authorized on Telegram", "username", api.Self.UserName)
	return b, nil
}

func newBot(sender Sender, svc Services, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		sender:      sender,
		chat:        svc.Chat,
		expenses:    svc.Expenses,
		summaries:   svc.Summaries,
		categorizer: svc.Categorizer,
		formatter:   svc.Formatter,
		logger:      logger.WithComponent(log.ComponentBot),
	}
}

// Start long-polls for updates until ctx ends.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram connection")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate answers one update. Errors are reported to the user and
// logged, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	text := b.respond(ctx, ownerOf(msg.From), msg)
	if text == "" {
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.sender.Send(out); err != nil {
		b.logger.ErrorContext(ctx, "Failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

// ownerOf maps a Telegram user onto an expense owner.
func ownerOf(u *tgbotapi.User) string {
	return "tg:" + strconv.FormatInt(u.ID, 10)
}

func (b *Bot) respond(ctx context.Context, owner string, msg *tgbotapi.Message) string {
	if !msg.IsCommand() {
		if strings.TrimSpace(msg.Text) == "" {
			return ""
		}
		ans, err := b.chat.Answer(ctx, owner, msg.Text)
		if err != nil {
			b.logger.ErrorContext(ctx, "Chat answer failed", log.FieldOwner, owner, log.FieldError, err)
			return "❌ Sorry, I could not look that up right now."
		}
		return ans.Text
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		return startText
	case "add":
		return b.handleAdd(ctx, owner, args)
	case "summary":
		return b.handleSummary(ctx, owner, args)
	case "categorize":
		if args == "" {
			return "Usage: /categorize <text>"
		}
		return "Category: " + b.categorizer.Categorize(args).String()
	default:
		return "Unknown command. Try /help."
	}
}

func (b *Bot) handleAdd(ctx context.Context, owner, args string) string {
	amount, title, err := parseAdd(args)
	if err != nil {
		return "❌ " + err.Error() + "\nUsage: /add <amount> <title>"
	}

	e, err := b.expenses.Create(ctx, core.Expense{Owner: owner, Title: title, Amount: amount})
	if err != nil {
		b.logger.WarnContext(ctx, "Failed to add expense", log.FieldOwner, owner, log.FieldError, err)
		return "❌ Could not save the expense: " + err.Error()
	}
	return fmt.Sprintf("✅ Saved %s%s for %q as %s on %s.",
		b.formatter.Currency, e.Amount, e.Title, e.Category, e.Date.Format(core.DisplayLayout))
}

func (b *Bot) handleSummary(ctx context.Context, owner, args string) string {
	filter := args
	if filter == "" {
		filter = aggregate.Day.String()
	}
	g, err := aggregate.ParseGranularity(filter)
	if err != nil {
		return "❌ Unknown filter. Use daily, weekly, monthly or yearly."
	}
	sum, err := b.summaries.Summary(ctx, owner, g)
	if err != nil {
		b.logger.ErrorContext(ctx, "Summary failed", log.FieldOwner, owner, log.FieldError, err)
		return "❌ Sorry, I could not build the summary right now."
	}
	return b.formatter.Summary(sum)
}

// parseAdd splits "<amount> <title...>".
func parseAdd(args string) (core.Money, string, error) {
	amountText, title, _ := strings.Cut(strings.TrimSpace(args), " ")
	if amountText == "" {
		return core.Money{}, "", errors.New("missing amount")
	}
	amount, err := core.ParseMoney(amountText)
	if err != nil {
		return core.Money{}, "", errors.New("amount must be a positive number")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return core.Money{}, "", errors.New("missing title")
	}
	return amount, title, nil
}
