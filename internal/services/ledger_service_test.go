package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"compras/internal/amqp"
	"compras/internal/core"
	"compras/internal/storage"
)

type recordingPublisher struct {
	events []*amqp.RecordEvent
	err    error
}

func (p *recordingPublisher) PublishRecordEvent(_ context.Context, e *amqp.RecordEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func fixedClock(s string) func() time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return func() time.Time { return t }
}

func newTestService(t *testing.T, opts ...Option) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "compras.db"))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewLedgerService(repo, opts...)
}

func req(barcode, price string, qty int) core.CreateRecordRequest {
	return core.CreateRecordRequest{
		Barcode:   barcode,
		Name:      "Produto " + barcode,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestLedgerService_CreateStampsPeriod(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, WithClock(fixedClock("2025-01-15")), WithPublisher(pub))
	ctx := context.Background()

	rec, err := svc.Create(ctx, req(" 789 ", "10.00", 2))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.Period != "2025-01" || rec.ID <= 0 || rec.Barcode != "789" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(pub.events) != 1 || pub.events[0].Action != amqp.ActionCreated || pub.events[0].ID != rec.ID {
		t.Fatalf("expected a created event, got %+v", pub.events)
	}
}

func TestLedgerService_ReportScenario(t *testing.T) {
	svc := newTestService(t, WithClock(fixedClock("2025-01-03")))
	ctx := context.Background()

	for _, r := range []core.CreateRecordRequest{req("1", "10.0", 2), req("2", "5.0", 1), req("3", "2.0", 3)} {
		if _, err := svc.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	report, err := svc.Report(ctx, "2025-01", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !report.TotalSpent.Equal(decimal.NewFromInt(31)) || report.TotalItems != 6 {
		t.Fatalf("expected (31, 6), got (%s, %d)", report.TotalSpent, report.TotalItems)
	}
	if !report.Credit.Remaining.Equal(decimal.NewFromInt(169)) || report.Credit.Overrun {
		t.Fatalf("unexpected credit: %+v", report.Credit)
	}

	empty, err := svc.Report(ctx, "1999-12", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !empty.TotalSpent.IsZero() || empty.TotalItems != 0 || len(empty.Records) != 0 {
		t.Fatalf("expected empty report, got %+v", empty)
	}
}

func TestLedgerService_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  core.CreateRecordRequest
		want error
	}{
		{"empty barcode", req("", "1", 1), core.ErrEmptyBarcode},
		{"zero quantity", req("1", "1", 0), core.ErrInvalidQuantity},
		{"negative price", req("1", "-0.01", 1), core.ErrNegativePrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("Create() error = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := svc.Report(ctx, "2025-13", decimal.Zero); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("Report() error = %v, want ErrInvalidPeriod", err)
	}
}

func TestLedgerService_UpdateDeleteClear(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, WithClock(fixedClock("2025-02-10")), WithPublisher(pub))
	ctx := context.Background()

	rec, err := svc.Create(ctx, req("555", "20", 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(ctx, rec.ID, core.UpdateRecordRequest{Name: " Arroz ", UnitPrice: decimal.NewFromInt(25), Quantity: 2})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Arroz" || updated.Period != "2025-02" || updated.Barcode != "555" {
		t.Fatalf("unexpected updated record: %+v", updated)
	}

	if _, err := svc.Update(ctx, 4242, core.UpdateRecordRequest{UnitPrice: decimal.NewFromInt(1), Quantity: 1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update() on unknown id = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, 4242); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Delete() on unknown id = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, rec.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Get() after delete = %v, want ErrNotFound", err)
	}

	svc.Create(ctx, req("1", "1", 1))
	svc.Create(ctx, req("2", "1", 1))
	n, err := svc.ClearPeriod(ctx, "2025-02")
	if err != nil || n != 2 {
		t.Fatalf("ClearPeriod() = %d, %v; want 2, nil", n, err)
	}

	var actions []amqp.Action
	for _, e := range pub.events {
		actions = append(actions, e.Action)
	}
	want := []amqp.Action{amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionDeleted, amqp.ActionCreated, amqp.ActionCreated, amqp.ActionPeriodCleared}
	if len(actions) != len(want) {
		t.Fatalf("events = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("events = %v, want %v", actions, want)
		}
	}
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, WithPublisher(pub))

	rec, err := svc.Create(context.Background(), req("9", "3.50", 1))
	if err != nil {
		t.Fatalf("Create should succeed despite publish failure: %v", err)
	}
	if _, err := svc.Get(context.Background(), rec.ID); err != nil {
		t.Fatalf("record should be stored: %v", err)
	}
}

func TestLedgerService_SearchRejectsBadPeriod(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Search(context.Background(), core.SearchFilter{Period: "01-2025"}); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("Search() error = %v, want ErrInvalidPeriod", err)
	}
}
