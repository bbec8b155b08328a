package services

import (
	"context"
	"fmt"

	"expensechat/internal/aggregate"
	"expensechat/internal/cache"
	"expensechat/internal/log"
	"expensechat/internal/store"
)

// SummaryService groups an owner's whole history by a granularity.
type SummaryService struct {
	store  store.Reader
	cache  cache.Cache[aggregate.Summary]
	logger *log.Logger
}

// NewSummaryService builds the service; a nil cache disables caching.
func NewSummaryService(r store.Reader, c cache.Cache[aggregate.Summary]) *SummaryService {
	return &SummaryService{
		store:  r,
		cache:  c,
		logger: log.Default().WithComponent(log.ComponentSummary),
	}
}

// summaryKey includes the store's data version, so a record added by any
// process sharing the store misses the cache.
func summaryKey(owner string, g aggregate.Granularity, version int64) string {
	return fmt.Sprintf("%s|%s|%d", owner, g, version)
}

// Summary returns all of owner's records aggregated by g.
func (s *SummaryService) Summary(ctx context.Context, owner string, g aggregate.Granularity) (aggregate.Summary, error) {
	var key string
	if s.cache != nil {
		version, err := s.store.Version(ctx, owner)
		if err != nil {
			return aggregate.Summary{}, fmt.Errorf("load data version: %w", err)
		}
		key = summaryKey(owner, g, version)
		if sum, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Summary served from cache", log.FieldOwner, owner, log.FieldFilter, g.String())
			return sum, nil
		}
	}

	records, err := s.store.Query(ctx, store.Filter{Owner: owner})
	if err != nil {
		return aggregate.Summary{}, fmt.Errorf("load expenses: %w", err)
	}
	sum := aggregate.Aggregate(records, g)
	s.logger.DebugContext(ctx, "Summary computed",
		log.FieldOperation, log.OpSummarize,
		log.FieldOwner, owner,
		log.FieldFilter, g.String(),
		"groups", len(sum.Groups))

	if s.cache != nil {
		s.cache.Set(key, sum)
	}
	return sum, nil
}

// Invalidate drops cached summaries for owner.
func (s *SummaryService) Invalidate(owner string) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.DeletePrefix(owner + "|")
}
