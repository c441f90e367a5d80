package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"compras/internal/core"
	"compras/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the ledger store. All access goes through a single
// connection, so concurrent callers in one process are serialized.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if isInMemory(dbPath) {
		return nil, ErrInMemoryDatabase
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, unavailable("open sqlite database", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable("ping database", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}

	if err := repo.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// Initialize ensures the schema exists. It never drops data.
func (r *SQLiteRepository) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := RunMigrations(r.path); err != nil {
		return unavailable("initialize", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Insert stores a new purchase stamped with period and returns its id.
func (r *SQLiteRepository) Insert(ctx context.Context, req core.CreateRecordRequest, period core.Period) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := period.Validate(); err != nil {
		return 0, err
	}

	id, err := r.queries.CreatePurchase(ctx, CreatePurchaseParams{
		Barcode:      req.Barcode,
		Name:         req.Name,
		Brand:        req.Brand,
		Manufacturer: req.Manufacturer,
		Category:     req.Category,
		UnitPrice:    req.UnitPrice.InexactFloat64(),
		Quantity:     int64(req.Quantity),
		Period:       period.String(),
	})
	if err != nil {
		return 0, unavailable("insert purchase", err)
	}

	slog.DebugContext(ctx, "Purchase saved to SQLite",
		"id", id,
		"barcode", req.Barcode,
		"period", period.String())

	return id, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.PurchaseRecord, error) {
	p, err := r.queries.GetPurchase(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PurchaseRecord{}, ErrNotFound
	}
	if err != nil {
		return core.PurchaseRecord{}, unavailable("get purchase", err)
	}
	return toRecord(p), nil
}

// ListAll returns every purchase, newest first.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.PurchaseRecord, error) {
	rows, err := r.queries.ListPurchases(ctx)
	if err != nil {
		return nil, unavailable("list purchases", err)
	}
	return toRecords(rows), nil
}

// ListPeriods returns the distinct periods that have purchases, newest first.
func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	labels, err := r.queries.ListPeriods(ctx)
	if err != nil {
		return nil, unavailable("list periods", err)
	}
	periods := make([]core.Period, len(labels))
	for i, l := range labels {
		periods[i] = core.Period(l)
	}
	return periods, nil
}

// ListByPeriod returns the purchases of one period in insertion order.
// An unknown period yields an empty slice.
func (r *SQLiteRepository) ListByPeriod(ctx context.Context, period core.Period) ([]core.PurchaseRecord, error) {
	rows, err := r.queries.ListPurchasesByPeriod(ctx, period.String())
	if err != nil {
		return nil, unavailable("list purchases by period", err)
	}
	return toRecords(rows), nil
}

// Search filters the full history. Name matches as a substring ignoring
// case for every Unicode letter, so "feijão" finds "FEIJÃO".
func (r *SQLiteRepository) Search(ctx context.Context, f core.SearchFilter) ([]core.PurchaseRecord, error) {
	rows, err := r.queries.SearchPurchases(ctx, SearchPurchasesParams{
		Category: strings.TrimSpace(f.Category),
		Period:   f.Period.String(),
	})
	if err != nil {
		return nil, unavailable("search purchases", err)
	}

	needle := foldName(strings.TrimSpace(f.Name))
	if needle == "" {
		return toRecords(rows), nil
	}
	matched := rows[:0]
	for _, row := range rows {
		if strings.Contains(foldName(row.Name), needle) {
			matched = append(matched, row)
		}
	}
	return toRecords(matched), nil
}

// foldName puts s in composed form and folds its case. A Caser holds state,
// so each call gets its own.
func foldName(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, unavailable("list categories", err)
	}
	return categories, nil
}

// Update replaces the editable fields of a purchase. Barcode and period are untouched.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, req core.UpdateRecordRequest) error {
	if id <= 0 {
		return core.ErrInvalidID
	}
	if err := req.Validate(); err != nil {
		return err
	}

	n, err := r.queries.UpdatePurchase(ctx, UpdatePurchaseParams{
		Name:         req.Name,
		Brand:        req.Brand,
		Manufacturer: req.Manufacturer,
		Category:     req.Category,
		UnitPrice:    req.UnitPrice.InexactFloat64(),
		Quantity:     int64(req.Quantity),
		ID:           id,
	})
	if err != nil {
		return unavailable("update purchase", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.DebugContext(ctx, "Purchase updated", "id", id)
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeletePurchase(ctx, id)
	if err != nil {
		return unavailable("delete purchase", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.DebugContext(ctx, "Purchase deleted", "id", id)
	return nil
}

// ClearPeriod deletes every purchase of period and reports how many went.
func (r *SQLiteRepository) ClearPeriod(ctx context.Context, period core.Period) (int64, error) {
	n, err := r.queries.DeletePurchasesByPeriod(ctx, period.String())
	if err != nil {
		return 0, unavailable("clear period", err)
	}

	slog.InfoContext(ctx, "Period cleared", "period", period.String(), "deleted", n)
	return n, nil
}

// SummarizeByPeriod returns spend and item totals per period, oldest first.
func (r *SQLiteRepository) SummarizeByPeriod(ctx context.Context) ([]core.PeriodSummary, error) {
	records, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.GroupByPeriod(records), nil
}

// Snapshot writes a consistent copy of the database to path, replacing any
// file already there.
func (r *SQLiteRepository) Snapshot(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale snapshot: %w", err)
	}

	// VACUUM INTO refuses to overwrite, hence the temp file and rename
	if _, err := r.db.ExecContext(ctx, `VACUUM INTO ?`, tmp); err != nil {
		os.Remove(tmp)
		return unavailable("vacuum into", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move snapshot into place: %w", err)
	}

	slog.InfoContext(ctx, "Database snapshot written", "path", path)
	return nil
}

func toRecord(p Purchase) core.PurchaseRecord {
	return core.PurchaseRecord{
		ID:           p.ID,
		Barcode:      p.Barcode,
		Name:         p.Name,
		Brand:        p.Brand,
		Manufacturer: p.Manufacturer,
		Category:     p.Category,
		UnitPrice:    decimal.NewFromFloat(p.UnitPrice),
		Quantity:     int(p.Quantity),
		Period:       core.Period(p.Period),
	}
}

func toRecords(rows []Purchase) []core.PurchaseRecord {
	records := make([]core.PurchaseRecord, len(rows))
	for i, p := range rows {
		records[i] = toRecord(p)
	}
	return records
}
