package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensechat/internal/core"
	"expensechat/internal/log"
	"expensechat/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var (
	_ store.Store       = (*SQLiteRepository)(nil)
	_ store.ExportQueue = (*SQLiteRepository)(nil)
	_ store.Pinger      = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: log.Default().WithComponent(log.ComponentStorage),
	}, nil
}

// dsn enables WAL and a busy timeout so the server and worker can share the file.
func dsn(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert implements store.Writer
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (owner, title, description, amount_cents, category, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Owner, e.Title, e.Description, e.Amount.Cents, string(e.Category),
		e.Date.String(), created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read expense id: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, id,
		log.FieldOwner, e.Owner,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category.String())

	return id, nil
}

const selectColumns = `SELECT id, owner, title, description, amount_cents, category, date, created_at FROM expenses`

// Query implements store.Reader
func (r *SQLiteRepository) Query(ctx context.Context, f store.Filter) ([]core.Expense, error) {
	where, args := buildWhere(f)
	q := selectColumns + " WHERE " + where + " ORDER BY date, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func buildWhere(f store.Filter) (string, []any) {
	conds := []string{"owner = ?"}
	args := []any{f.Owner}
	if !f.On.IsEmpty() {
		conds = append(conds, "date = ?")
		args = append(args, f.On.String())
	}
	if !f.From.IsEmpty() {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsEmpty() {
		conds = append(conds, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.Year != 0 {
		conds = append(conds, "substr(date, 1, 4) = ?")
		args = append(args, fmt.Sprintf("%04d", f.Year))
		if f.Month != 0 {
			conds = append(conds, "substr(date, 6, 2) = ?")
			args = append(args, fmt.Sprintf("%02d", f.Month))
		}
	}
	return strings.Join(conds, " AND "), args
}

// Get implements store.Reader
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" WHERE id = ?", id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	defer rows.Close()
	out, err := scanExpenses(rows)
	if err != nil {
		return core.Expense{}, err
	}
	if len(out) == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return out[0], nil
}

// Version implements store.Reader. It reads the owner's highest ID, which
// moves on every insert from any process sharing the file.
func (r *SQLiteRepository) Version(ctx context.Context, owner string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM expenses WHERE owner = ?`, owner).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

// PendingExport returns expenses not yet written to the spreadsheet, oldest first.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := r.db.QueryContext(ctx,
		selectColumns+" WHERE exported_at IS NULL ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

// MarkExported records that the expense reached the spreadsheet.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET exported_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}

	r.logger.DebugContext(ctx, "Expense marked as exported", log.FieldExpenseID, id)
	return nil
}

// IsExported reports whether MarkExported ran for id.
func (r *SQLiteRepository) IsExported(ctx context.Context, id int64) (bool, error) {
	var exported bool
	err := r.db.QueryRowContext(ctx,
		`SELECT exported_at IS NOT NULL FROM expenses WHERE id = ?`, id).Scan(&exported)
	if errors.Is(err, sql.ErrNoRows) {
		return false, core.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("read export state: %w", err)
	}
	return exported, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		var (
			e                   core.Expense
			category, date, crt string
		)
		if err := rows.Scan(&e.ID, &e.Owner, &e.Title, &e.Description, &e.Amount.Cents, &category, &date, &crt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("expense %d has bad date %q: %w", e.ID, date, err)
		}
		e.Date = d
		e.Category = core.Category(category)
		if t, err := time.Parse(time.RFC3339Nano, crt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}
