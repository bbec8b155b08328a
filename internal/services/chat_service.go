package services

import (
	"context"
	"fmt"
	"time"

	"expensechat/internal/aggregate"
	"expensechat/internal/core"
	"expensechat/internal/log"
	"expensechat/internal/query"
	"expensechat/internal/reply"
	"expensechat/internal/store"
)

// Answer is the reply to one chat question.
type Answer struct {
	Text   string
	Intent query.Intent
}

// ChatService answers free-text questions about an owner's expenses.
type ChatService struct {
	store     store.Reader
	formatter reply.Formatter
	logger    *log.Logger
	now       func() time.Time
}

func NewChatService(r store.Reader, f reply.Formatter) *ChatService {
	return &ChatService{
		store:     r,
		formatter: f,
		logger:    log.Default().WithComponent(log.ComponentChat),
		now:       time.Now,
	}
}

// Answer parses text, fetches the matching records and renders the result.
// Unrecognized questions get the help text without touching the store.
func (s *ChatService) Answer(ctx context.Context, owner, text string) (Answer, error) {
	q := query.Parse(text, core.DateOf(s.now()))
	out := Answer{Intent: q.Intent}

	switch q.Intent {
	case query.Total:
		records, err := s.store.Query(ctx, filterFor(owner, q))
		if err != nil {
			return Answer{}, fmt.Errorf("load expenses: %w", err)
		}
		out.Text = s.formatter.Total(aggregate.Aggregate(records, aggregate.None).Total)

	case query.Trend:
		// Trend always covers the owner's full history by month; the date
		// and category parsed from the question are ignored here.
		records, err := s.store.Query(ctx, store.Filter{Owner: owner})
		if err != nil {
			return Answer{}, fmt.Errorf("load expenses: %w", err)
		}
		out.Text = s.formatter.Trend(aggregate.Aggregate(records, aggregate.Month).Groups)

	case query.CategoryBreakdown:
		records, err := s.store.Query(ctx, filterFor(owner, q))
		if err != nil {
			return Answer{}, fmt.Errorf("load expenses: %w", err)
		}
		out.Text = s.formatter.Breakdown(aggregate.ByCategory(records))

	default:
		out.Text = s.formatter.Help()
	}

	s.logger.DebugContext(ctx, "Chat query answered",
		log.FieldOperation, log.OpAnswer,
		log.FieldOwner, owner,
		log.FieldIntent, q.Intent.String())
	return out, nil
}

func filterFor(owner string, q query.Query) store.Filter {
	f := store.Filter{Owner: owner, Category: q.Category}
	switch q.Date.Kind {
	case query.DateExact:
		f.On = q.Date.Start
	case query.DateRange:
		f.From, f.To = q.Date.Start, q.Date.End
	}
	return f
}
