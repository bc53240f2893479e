package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"retailhub/backend/internal/alerts"
	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/events"
	"retailhub/backend/internal/metrics"
	"retailhub/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

func actorID(ctx context.Context) int64 {
	actor, _ := ActorFromContext(ctx)
	return actor.UserID
}

// QuotationNotifier hands a sent quotation to whatever delivers it.
type QuotationNotifier interface {
	NotifyQuotationSent(ctx context.Context, quotation domain.Quotation) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyQuotationSent(context.Context, domain.Quotation) error { return nil }

type Service struct {
	repo      store.Repository
	alerts    *alerts.Engine
	publisher events.Publisher
	notifier  QuotationNotifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

func WithNotifier(notifier QuotationNotifier) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(repo store.Repository, alertEngine *alerts.Engine, opts ...Option) *Service {
	if alertEngine == nil {
		alertEngine = alerts.NewEngine(nil, 0)
	}
	s := &Service{
		repo:      repo,
		alerts:    alertEngine,
		publisher: events.NoopPublisher{},
		notifier:  noopNotifier{},
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outcome turns err into a failed Result when it is a business-rule
// violation. Anything else is returned wrapped in store.ErrPersistence.
func (s *Service) outcome(op string, err error) (domain.Result, error) {
	code := businessCode(err)
	if code == "" {
		s.metrics.Failure(op, "persistence")
		s.logger.Error("operation failed", zap.String("op", op), zap.Error(err))
		return domain.Result{}, fmt.Errorf("%s: %w: %w", op, store.ErrPersistence, err)
	}
	s.metrics.Failure(op, code)
	s.logger.Info("operation rejected", zap.String("op", op), zap.String("code", code), zap.String("reason", err.Error()))
	return domain.Result{Success: false, Message: err.Error(), Code: code}, nil
}

func businessCode(err error) string {
	switch {
	case errors.Is(err, store.ErrValidation), errors.Is(err, store.ErrDuplicate):
		return domain.CodeValidation
	case errors.Is(err, store.ErrInsufficientStock):
		return domain.CodeInsufficientStock
	case errors.Is(err, store.ErrNotCancellable):
		return domain.CodeNotCancellable
	case errors.Is(err, store.ErrAlreadyProcessed):
		return domain.CodeAlreadyProcessed
	case errors.Is(err, store.ErrInvalidStateTransition):
		return domain.CodeInvalidTransition
	case errors.Is(err, store.ErrNotFound):
		return domain.CodeNotFound
	}
	return ""
}

func ok(message string) domain.Result {
	return domain.Result{Success: true, Message: message}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrValidation, fmt.Sprintf(format, args...))
}

// afterCommit fans committed ledger entries out to the event stream and
// drops cached alert reports for the shops they touched. Failures here are
// logged, never returned: the movement is already durable.
func (s *Service) afterCommit(ctx context.Context, op string, entries []domain.LedgerEntry) {
	if len(entries) == 0 {
		return
	}
	shops := make([]int64, 0, 2)
	for _, entry := range entries {
		s.metrics.Movement(string(entry.Type), entry.Quantity)
		if !slices.Contains(shops, entry.ShopID) {
			shops = append(shops, entry.ShopID)
		}
	}
	if err := s.alerts.Invalidate(ctx, shops...); err != nil {
		s.logger.Warn("invalidate alert cache", zap.String("op", op), zap.Error(err))
	}
	if err := s.publisher.PublishMovements(ctx, entries); err != nil {
		s.logger.Warn("publish stock movements", zap.String("op", op), zap.Int("entries", len(entries)), zap.Error(err))
	}
}

func normalizePage(page int, limit int) domain.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return domain.Page{Page: page, Limit: limit}
}
