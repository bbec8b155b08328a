package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"expensechat/internal/core"
	"expensechat/internal/log"
	"expensechat/internal/store"
)

// Categorizer assigns a canonical category to free text.
type Categorizer interface {
	Categorize(text string) core.Category
}

// Publisher announces stored expenses to other processes.
type Publisher interface {
	PublishExpenseCreated(ctx context.Context, id int64, owner string) error
}

// ExpenseService is the write path: it fills defaults, categorizes, stores
// and announces new expenses.
type ExpenseService struct {
	store       store.Writer
	categorizer Categorizer
	publisher   Publisher
	summaries   *SummaryService
	logger      *log.Logger
	now         func() time.Time
}

// NewExpenseService wires the write path. publisher and summaries may be nil.
func NewExpenseService(w store.Writer, c Categorizer, p Publisher, summaries *SummaryService) *ExpenseService {
	return &ExpenseService{
		store:       w,
		categorizer: c,
		publisher:   p,
		summaries:   summaries,
		logger:      log.Default().WithComponent(log.ComponentExpense),
		now:         time.Now,
	}
}

// Create stores e and returns it with its ID, date and category filled in.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Owner = strings.TrimSpace(e.Owner)
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)

	if e.Date.IsEmpty() {
		e.Date = core.DateOf(s.now())
	}
	if err := e.Amount.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("expense amount must be greater than 0: %w", err)
	}
	if e.Title == "" {
		return core.Expense{}, core.ErrEmptyTitle
	}

	if e.Category == "" || e.Category == core.Other {
		e.Category = core.Other
		if s.categorizer != nil {
			e.Category = s.categorizer.Categorize(e.Text())
		}
		if e.Category == core.Other {
			e.Category = titleRule(e.Title)
		}
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	id, err := s.store.Insert(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(id, e.Owner, e.Title, e.Amount.String(), e.Category.String())
	s.logger.InfoContext(ctx, "New expense added", fields.ToSlice()...)

	if s.summaries != nil {
		s.summaries.Invalidate(e.Owner)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseCreated(ctx, id, e.Owner); err != nil {
			// the record is stored; the export sweep picks it up later
			s.logger.ErrorContext(ctx, "Failed to publish expense created message",
				fields.WithOperation(log.OpPublish).WithError(err).ToSlice()...)
		}
	}
	return e, nil
}

// titleRule is the write path's own keyword check on the title. It overlaps
// the categorizer's alias table on purpose and is kept separate from it.
func titleRule(title string) core.Category {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "uber"), strings.Contains(t, "bus"):
		return core.Travel
	case strings.Contains(t, "pizza"), strings.Contains(t, "restaurant"):
		return core.Food
	}
	return core.Other
}
