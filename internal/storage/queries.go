package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Transaction mirrors one row of the transactions table.
type Transaction struct {
	ID          int64
	Type        string
	Amount      float64
	Category    string
	Date        string
	Description sql.NullString
}

const createTransaction = `
INSERT INTO transactions (type, amount, category, date, description)
VALUES (?, ?, ?, ?, ?)
`

type CreateTransactionParams struct {
	Type        string
	Amount      float64
	Category    string
	Date        string
	Description string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.Type,
		arg.Amount,
		arg.Category,
		arg.Date,
		arg.Description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listTransactions = `
SELECT id, type, amount, category, date, description
FROM transactions
ORDER BY id ASC
`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Type,
			&i.Amount,
			&i.Category,
			&i.Date,
			&i.Description,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `
SELECT id, type, amount, category, date, description
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Amount,
		&i.Category,
		&i.Date,
		&i.Description,
	)
	return i, err
}

const updateTransaction = `
UPDATE transactions
SET amount = ?, category = ?, date = ?, description = ?
WHERE id = ?
`

type UpdateTransactionParams struct {
	Amount      float64
	Category    string
	Date        string
	Description string
	ID          int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Amount,
		arg.Category,
		arg.Date,
		arg.Description,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const aggregateByDate = `
SELECT date,
       SUM(CASE WHEN type = 'Income' THEN amount ELSE 0 END) AS income,
       SUM(CASE WHEN type = 'Expense' THEN amount ELSE 0 END) AS expense
FROM transactions
GROUP BY date
ORDER BY date
`

type AggregateByDateRow struct {
	Date    string
	Income  float64
	Expense float64
}

func (q *Queries) AggregateByDate(ctx context.Context) ([]AggregateByDateRow, error) {
	rows, err := q.db.QueryContext(ctx, aggregateByDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AggregateByDateRow
	for rows.Next() {
		var i AggregateByDateRow
		if err := rows.Scan(&i.Date, &i.Income, &i.Expense); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const aggregateExpenseByCategory = `
SELECT category, SUM(amount) AS total_amount
FROM transactions
WHERE type = 'Expense'
GROUP BY category
`

type AggregateExpenseByCategoryRow struct {
	Category    string
	TotalAmount float64
}

func (q *Queries) AggregateExpenseByCategory(ctx context.Context) ([]AggregateExpenseByCategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, aggregateExpenseByCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AggregateExpenseByCategoryRow
	for rows.Next() {
		var i AggregateExpenseByCategoryRow
		if err := rows.Scan(&i.Category, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
