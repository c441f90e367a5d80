package storage

import (
	"context"
)

// Purchase mirrors a row of the purchases table.
type Purchase struct {
	ID           int64
	Barcode      string
	Name         string
	Brand        string
	Manufacturer string
	Category     string
	UnitPrice    float64
	Quantity     int64
	Period       string
}

const purchaseColumns = `id, barcode, name, brand, manufacturer, category, unit_price, quantity, period`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPurchase(row rowScanner) (Purchase, error) {
	var p Purchase
	err := row.Scan(
		&p.ID,
		&p.Barcode,
		&p.Name,
		&p.Brand,
		&p.Manufacturer,
		&p.Category,
		&p.UnitPrice,
		&p.Quantity,
		&p.Period,
	)
	return p, err
}

func (q *Queries) listPurchases(ctx context.Context, query string, args ...interface{}) ([]Purchase, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPurchase = `
INSERT INTO purchases (barcode, name, brand, manufacturer, category, unit_price, quantity, period)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreatePurchaseParams struct {
	Barcode      string
	Name         string
	Brand        string
	Manufacturer string
	Category     string
	UnitPrice    float64
	Quantity     int64
	Period       string
}

func (q *Queries) CreatePurchase(ctx context.Context, arg CreatePurchaseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createPurchase,
		arg.Barcode,
		arg.Name,
		arg.Brand,
		arg.Manufacturer,
		arg.Category,
		arg.UnitPrice,
		arg.Quantity,
		arg.Period,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getPurchase = `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = ?`

func (q *Queries) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	return scanPurchase(q.db.QueryRowContext(ctx, getPurchase, id))
}

const listPurchases = `SELECT ` + purchaseColumns + ` FROM purchases ORDER BY id DESC`

func (q *Queries) ListPurchases(ctx context.Context) ([]Purchase, error) {
	return q.listPurchases(ctx, listPurchases)
}

const listPurchasesByPeriod = `SELECT ` + purchaseColumns + ` FROM purchases WHERE period = ? ORDER BY id`

func (q *Queries) ListPurchasesByPeriod(ctx context.Context, period string) ([]Purchase, error) {
	return q.listPurchases(ctx, listPurchasesByPeriod, period)
}

// Name matching is not done here: LIKE only folds ASCII case.
const searchPurchases = `
SELECT ` + purchaseColumns + ` FROM purchases
WHERE (?1 = '' OR category = ?1)
  AND (?2 = '' OR period = ?2)
ORDER BY id DESC`

type SearchPurchasesParams struct {
	Category string
	Period   string
}

func (q *Queries) SearchPurchases(ctx context.Context, arg SearchPurchasesParams) ([]Purchase, error) {
	return q.listPurchases(ctx, searchPurchases, arg.Category, arg.Period)
}

const listPeriods = `SELECT DISTINCT period FROM purchases ORDER BY period DESC`

func (q *Queries) ListPeriods(ctx context.Context) ([]string, error) {
	return q.listStrings(ctx, listPeriods)
}

const listCategories = `SELECT DISTINCT category FROM purchases WHERE category <> '' ORDER BY category`

func (q *Queries) ListCategories(ctx context.Context) ([]string, error) {
	return q.listStrings(ctx, listCategories)
}

func (q *Queries) listStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updatePurchase = `
UPDATE purchases
SET name = ?, brand = ?, manufacturer = ?, category = ?, unit_price = ?, quantity = ?
WHERE id = ?`

type UpdatePurchaseParams struct {
	Name         string
	Brand        string
	Manufacturer string
	Category     string
	UnitPrice    float64
	Quantity     int64
	ID           int64
}

func (q *Queries) UpdatePurchase(ctx context.Context, arg UpdatePurchaseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePurchase,
		arg.Name,
		arg.Brand,
		arg.Manufacturer,
		arg.Category,
		arg.UnitPrice,
		arg.Quantity,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePurchase = `DELETE FROM purchases WHERE id = ?`

func (q *Queries) DeletePurchase(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePurchase, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePurchasesByPeriod = `DELETE FROM purchases WHERE period = ?`

func (q *Queries) DeletePurchasesByPeriod(ctx context.Context, period string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePurchasesByPeriod, period)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
