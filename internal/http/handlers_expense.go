package http

import (
	"errors"
	"net/http"
	"time"

	"expensechat/internal/core"
	"expensechat/internal/log"
)

type createExpenseRequest struct {
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"` // YYYY-MM-DD, empty means today
}

type expenseResponse struct {
	ID          int64         `json:"id"`
	Owner       string        `json:"owner"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Amount      string        `json:"amount"`
	Category    core.Category `json:"category"`
	Date        string        `json:"date"`
	CreatedAt   string        `json:"created_at,omitempty"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := req.toExpense()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.deps.Expenses.Create(r.Context(), e)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentExpense).ErrorContext(r.Context(), "Failed to create expense",
			log.FieldOwner, e.Owner,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not save the expense")
		return
	}
	s.expenses.Add(1)

	writeJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (req createExpenseRequest) toExpense() (core.Expense, error) {
	e := core.Expense{
		Owner:       sanitizeInput(req.Owner),
		Title:       sanitizeInput(req.Title),
		Description: sanitizeInput(req.Description),
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return core.Expense{}, errors.New("amount must be a positive number")
	}
	e.Amount = amount

	if c := sanitizeInput(req.Category); c != "" {
		cat, ok := core.ParseCategory(c)
		if !ok {
			return core.Expense{}, core.ErrInvalidCategory
		}
		e.Category = cat
	}

	if d := sanitizeInput(req.Date); d != "" {
		date, err := core.ParseDate(d)
		if err != nil {
			return core.Expense{}, errors.New("date must be YYYY-MM-DD")
		}
		e.Date = date
	}
	return e, nil
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrEmptyTitle, core.ErrEmptyOwner,
		core.ErrInvalidCategory, core.ErrInvalidDay, core.ErrInvalidMonth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toExpenseResponse(e core.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		Owner:       e.Owner,
		Title:       e.Title,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        e.Date.String(),
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
