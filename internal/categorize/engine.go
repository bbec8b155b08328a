package categorize

import (
	"strings"

	"expensechat/internal/core"
	"expensechat/internal/log"
	"expensechat/internal/model"
)

// Engine categorizes free text: the trained model first when one is loaded,
// then keyword aliases, then Other. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	model   model.Loaded
	aliases *AliasTable
	logger  *log.Logger
}

// NewEngine builds an engine. A nil alias table means the built-in one.
func NewEngine(m model.Loaded, aliases *AliasTable, logger *log.Logger) *Engine {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		model:   m,
		aliases: aliases,
		logger:  logger.WithComponent(log.ComponentCategorizer),
	}
}

// Categorize returns the canonical category for text. It never fails.
func (e *Engine) Categorize(text string) core.Category {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Other
	}

	if a, ok := e.model.Get(); ok {
		label, err := a.Predict(text)
		if err == nil {
			return e.aliases.Normalize(label)
		}
		e.logger.Debug("Model prediction unavailable, using keyword rules",
			log.FieldOperation, log.OpCategorize,
			log.FieldError, err)
	}

	if c, ok := e.aliases.Match(text); ok {
		return c
	}
	return core.Other
}

// Normalize exposes the alias table's label normalization.
func (e *Engine) Normalize(raw string) core.Category {
	return e.aliases.Normalize(raw)
}

// HasModel reports whether a trained artifact is in use.
func (e *Engine) HasModel() bool {
	_, ok := e.model.Get()
	return ok
}
