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

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"

	_ "modernc.org/sqlite"
)

const ruleColumns = "id, name, account, sensor, comparison, threshold, triggered, last_value, created_at, updated_at"

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the CLI read rules while the daemon updates trigger state.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) SetRule(ctx context.Context, rule *model.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	rule.Triggered = false
	rule.LastValue = 0

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO rules (id, name, account, sensor, comparison, threshold, triggered, last_value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   account = excluded.account,
		   sensor = excluded.sensor,
		   comparison = excluded.comparison,
		   threshold = excluded.threshold,
		   triggered = 0,
		   last_value = 0,
		   updated_at = excluded.updated_at
		 RETURNING id, created_at`,
		rule.ID, rule.Name, rule.Account, rule.Sensor, string(rule.Comparison),
		rule.Threshold, rule.CreatedAt, rule.UpdatedAt,
	).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("set rule: %w", err)
	}
	return nil
}

func (s *SQLite) GetRule(ctx context.Context, name string) (*model.Rule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM rules WHERE name = ?", name)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

func (s *SQLite) ListRules(ctx context.Context, filter RuleFilter) ([]model.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM rules"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func (s *SQLite) DeleteRule(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return checkAffected(result, name)
}

func (s *SQLite) UpdateRuleState(ctx context.Context, name string, triggered bool, value float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE rules SET triggered = ?, last_value = ?, updated_at = ? WHERE name = ?`,
		triggered, value, time.Now().UTC(), name,
	)
	if err != nil {
		return fmt.Errorf("update rule state: %w", err)
	}
	return checkAffected(result, name)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*model.Rule, error) {
	var r model.Rule
	var comparison string
	if err := row.Scan(&r.ID, &r.Name, &r.Account, &r.Sensor, &comparison, &r.Threshold,
		&r.Triggered, &r.LastValue, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Comparison = model.Comparison(comparison)
	return &r, nil
}

func checkAffected(result sql.Result, name string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rule %q: %w", name, ErrNotFound)
	}
	return nil
}

// buildWhereClause constructs a SQL WHERE clause from a RuleFilter.
func buildWhereClause(filter RuleFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Account != "" {
		conditions = append(conditions, "account = ?")
		args = append(args, filter.Account)
	}
	if filter.Sensor != "" {
		conditions = append(conditions, "sensor = ?")
		args = append(args, filter.Sensor)
	}

	return strings.Join(conditions, " AND "), args
}
