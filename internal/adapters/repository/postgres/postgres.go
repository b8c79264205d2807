// Package postgres implements repository.Store on PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/lifespan/internal/adapters/repository"
	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		ruleset     TEXT NOT NULL,
		profile     JSONB NOT NULL,
		adjustments JSONB NOT NULL DEFAULT '[]',
		expectancy  DOUBLE PRECISION NOT NULL,
		years_left  DOUBLE PRECISION NOT NULL,
		days_left   INTEGER NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS predictions_user_created_idx
		ON predictions (user_id, created_at DESC)`,
}

// Store is a PostgreSQL-backed repository.Store.
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// New wraps an existing handle. The caller keeps ownership of schema setup;
// see Migrate.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn, applies pool options, pings and migrates.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg := poolConfig{maxOpen: 10, maxIdle: 5, maxLifetime: 30 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.maxOpen)
	db.SetMaxIdleConns(cfg.maxIdle)
	db.SetConnMaxLifetime(cfg.maxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u == nil || u.ID == "" {
		return model.ErrIDRequired
	}
	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID,
		u.Name,
		model.NormalizeEmail(u.Email),
		u.PasswordHash,
		string(u.Role),
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, model.NormalizeEmail(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Role = model.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (s *Store) SavePrediction(ctx context.Context, p *model.Prediction) error {
	if p == nil || p.ID == "" {
		return model.ErrIDRequired
	}
	profile, err := json.Marshal(p.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	adjustments := p.Adjustments
	if adjustments == nil {
		adjustments = []scoring.Adjustment{}
	}
	adj, err := json.Marshal(adjustments)
	if err != nil {
		return fmt.Errorf("failed to encode adjustments: %w", err)
	}

	query := `
		INSERT INTO predictions
			(id, user_id, ruleset, profile, adjustments, expectancy, years_left, days_left, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.RuleSet,
		profile,
		adj,
		p.Result.PredictedLifeExpectancy,
		p.Result.YearsLeft,
		p.Result.DaysLeft,
		p.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

const predictionColumns = `id, user_id, ruleset, profile, adjustments, expectancy, years_left, days_left, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row scanner) (*model.Prediction, error) {
	var (
		p            model.Prediction
		profile, adj []byte
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.RuleSet,
		&profile,
		&adj,
		&p.Result.PredictedLifeExpectancy,
		&p.Result.YearsLeft,
		&p.Result.DaysLeft,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(profile, &p.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if len(adj) > 0 {
		if err := json.Unmarshal(adj, &p.Adjustments); err != nil {
			return nil, fmt.Errorf("failed to decode adjustments: %w", err)
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) PredictionByID(ctx context.Context, id string) (*model.Prediction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE id = $1`, id)
	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

func (s *Store) ListPredictions(ctx context.Context, userID string, limit int) ([]*model.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return out, nil
}

func (s *Store) CountPredictions(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM predictions`)
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
