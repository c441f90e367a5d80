package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"compras/internal/amqp"
	"compras/internal/core"
	"compras/internal/ledger"
	"compras/internal/log"
	"compras/internal/metrics"
)

// LedgerStore is the persistence the service needs
type LedgerStore interface {
	Insert(ctx context.Context, req core.CreateRecordRequest, period core.Period) (int64, error)
	Get(ctx context.Context, id int64) (core.PurchaseRecord, error)
	ListAll(ctx context.Context) ([]core.PurchaseRecord, error)
	ListPeriods(ctx context.Context) ([]core.Period, error)
	ListByPeriod(ctx context.Context, period core.Period) ([]core.PurchaseRecord, error)
	Search(ctx context.Context, f core.SearchFilter) ([]core.PurchaseRecord, error)
	ListCategories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id int64, req core.UpdateRecordRequest) error
	Delete(ctx context.Context, id int64) error
	ClearPeriod(ctx context.Context, period core.Period) (int64, error)
	SummarizeByPeriod(ctx context.Context) ([]core.PeriodSummary, error)
}

// EventPublisher hands ledger events to the broker
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, event *amqp.RecordEvent) error
}

// LedgerService validates commands, writes through the store and announces
// every successful write. Publishing is best effort and never fails a write.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
	now       func() time.Time
	logger    *log.Logger
	sl        *log.StructuredLogger
}

type Option func(*LedgerService)

// WithPublisher enables ledger events. A nil publisher leaves them off.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) {
		s.publisher = p
	}
}

// WithClock replaces time.Now, which stamps the period of new purchases
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		s.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) {
		s.logger = l
	}
}

func NewLedgerService(store LedgerStore, opts ...Option) *LedgerService {
	s := &LedgerService{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	s.sl = log.NewStructuredLogger(s.logger)
	return s
}

// CurrentPeriod is the period new purchases are stamped with
func (s *LedgerService) CurrentPeriod() core.Period {
	return core.PeriodOf(s.now())
}

// Create records a purchase in the current period
func (s *LedgerService) Create(ctx context.Context, req core.CreateRecordRequest) (core.PurchaseRecord, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return core.PurchaseRecord{}, err
	}

	period := s.CurrentPeriod()
	id, err := s.store.Insert(ctx, req, period)
	if err != nil {
		return core.PurchaseRecord{}, fmt.Errorf("save purchase: %w", err)
	}

	rec := req.Record(id, period)
	metrics.LedgerWrites.WithLabelValues(string(amqp.ActionCreated)).Inc()
	s.sl.LogRecordCreated(ctx, id, rec.Barcode, period.String(), rec.Quantity, ledger.Subtotal(rec).StringFixed(2))
	s.publish(ctx, amqp.ActionCreated, id, period)
	return rec, nil
}

// Update edits a purchase. Barcode and period never change.
func (s *LedgerService) Update(ctx context.Context, id int64, req core.UpdateRecordRequest) (core.PurchaseRecord, error) {
	if id <= 0 {
		return core.PurchaseRecord{}, core.ErrInvalidID
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return core.PurchaseRecord{}, err
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return core.PurchaseRecord{}, err
	}
	if err := s.store.Update(ctx, id, req); err != nil {
		return core.PurchaseRecord{}, err
	}

	metrics.LedgerWrites.WithLabelValues(string(amqp.ActionUpdated)).Inc()
	s.logger.InfoContext(ctx, "Purchase updated", log.FieldRecordID, id, log.FieldPeriod, current.Period.String())
	s.publish(ctx, amqp.ActionUpdated, id, current.Period)
	return req.Apply(current), nil
}

// Delete removes a purchase permanently
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.ErrInvalidID
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	metrics.LedgerWrites.WithLabelValues(string(amqp.ActionDeleted)).Inc()
	s.logger.InfoContext(ctx, "Purchase deleted", log.FieldRecordID, id, log.FieldPeriod, current.Period.String())
	s.publish(ctx, amqp.ActionDeleted, id, current.Period)
	return nil
}

// ClearPeriod deletes every purchase of period
func (s *LedgerService) ClearPeriod(ctx context.Context, period core.Period) (int64, error) {
	if err := period.Validate(); err != nil {
		return 0, err
	}
	n, err := s.store.ClearPeriod(ctx, period)
	if err != nil {
		return 0, err
	}

	metrics.LedgerWrites.WithLabelValues(string(amqp.ActionPeriodCleared)).Inc()
	s.publish(ctx, amqp.ActionPeriodCleared, 0, period)
	return n, nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.PurchaseRecord, error) {
	if id <= 0 {
		return core.PurchaseRecord{}, core.ErrInvalidID
	}
	return s.store.Get(ctx, id)
}

// Report loads a period and computes its totals against ceiling
func (s *LedgerService) Report(ctx context.Context, period core.Period, ceiling decimal.Decimal) (core.PeriodReport, error) {
	if err := period.Validate(); err != nil {
		return core.PeriodReport{}, err
	}
	records, err := s.store.ListByPeriod(ctx, period)
	if err != nil {
		return core.PeriodReport{}, err
	}
	return ledger.Report(period, records, ceiling), nil
}

func (s *LedgerService) Records(ctx context.Context, period core.Period) ([]core.PurchaseRecord, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListByPeriod(ctx, period)
}

// Periods lists known periods newest first
func (s *LedgerService) Periods(ctx context.Context) ([]core.Period, error) {
	return s.store.ListPeriods(ctx)
}

// Summaries returns per-period totals oldest first
func (s *LedgerService) Summaries(ctx context.Context) ([]core.PeriodSummary, error) {
	return s.store.SummarizeByPeriod(ctx)
}

func (s *LedgerService) Search(ctx context.Context, f core.SearchFilter) ([]core.PurchaseRecord, error) {
	if f.Period != "" {
		if err := f.Period.Validate(); err != nil {
			return nil, err
		}
	}
	return s.store.Search(ctx, f)
}

func (s *LedgerService) Categories(ctx context.Context) ([]string, error) {
	return s.store.ListCategories(ctx)
}

func (s *LedgerService) publish(ctx context.Context, action amqp.Action, id int64, period core.Period) {
	if s.publisher == nil {
		return
	}
	event := amqp.NewRecordEvent(action, id, period.String(), s.now().UTC())
	if err := s.publisher.PublishRecordEvent(ctx, event); err != nil {
		metrics.EventsPublished.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			log.FieldRecordID, id,
			log.FieldPeriod, period.String(),
			log.FieldError, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(metrics.OutcomeSuccess).Inc()
}
