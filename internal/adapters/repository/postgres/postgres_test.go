package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/lifespan/internal/adapters/repository"
	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return New(db), mock, func() { db.Close() }
}

var userCols = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

var predictionCols = []string{
	"id", "user_id", "ruleset", "profile", "adjustments",
	"expectancy", "years_left", "days_left", "created_at",
}

func TestMigrate(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS predictions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS predictions_user_created_idx`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnError(errors.New("permission denied"))

	err := s.Migrate(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	u := &model.User{
		ID: "u1", Name: "Ann", Email: " Ann@Example.com ", PasswordHash: "h",
		Role: model.RoleUser, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("u1", "Ann", "ann@example.com", "h", "user", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.CreateUser(context.Background(), &model.User{ID: "u1", Email: "a@example.com"})
	assert.True(t, errors.Is(err, repository.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_MissingID(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	err := s.CreateUser(context.Background(), &model.User{Email: "a@example.com"})
	assert.True(t, errors.Is(err, model.ErrIDRequired))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByEmail(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Ann", "ann@example.com", "h", "admin", now, now))

	u, err := s.UserByEmail(context.Background(), "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByID_NotFound(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.UserByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePassword(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE users SET password_hash = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("u1", "new", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users`).
		WithArgs("ghost", "new", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.UpdatePassword(context.Background(), "u1", "new", at))
	err := s.UpdatePassword(context.Background(), "ghost", "new", at)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounts(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM predictions`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	users, err := s.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, users)

	preds, err := s.CountPredictions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, preds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePrediction(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	now := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	p := &model.Prediction{
		ID:      "p1",
		UserID:  "u1",
		RuleSet: "standard",
		Profile: scoring.HealthProfile{Age: 40, Sex: scoring.SexFemale, BMI: scoring.Measured(22)},
		Result:  scoring.PredictionResult{PredictedLifeExpectancy: 84.5, YearsLeft: 44.5, DaysLeft: 16242},
		Adjustments: []scoring.Adjustment{
			{Rule: "sex", Field: scoring.FieldSex, Delta: 3},
		},
		CreatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO predictions`).
		WithArgs("p1", "u1", "standard", sqlmock.AnyArg(), sqlmock.AnyArg(), 84.5, 44.5, 16242, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SavePrediction(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionByID(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	now := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	profile := []byte(`{"age":40,"sex":"female","bmi":22,"systolic_bp":null,"smoker":true}`)
	adj := []byte(`[{"rule":"smoking","field":"smoker","delta":-10}]`)
	mock.ExpectQuery(`FROM predictions WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(predictionCols).
			AddRow("p1", "u1", "standard", profile, adj, 70.0, 30.0, 10950, now))

	p, err := s.PredictionByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, 40, p.Profile.Age)
	assert.True(t, p.Profile.Smoker)
	assert.True(t, p.Profile.BMI.Valid)
	assert.False(t, p.Profile.SystolicBP.Valid)
	assert.Equal(t, 10950, p.Result.DaysLeft)
	require.Len(t, p.Adjustments, 1)
	assert.Equal(t, -10.0, p.Adjustments[0].Delta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionByID_NotFound(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM predictions WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := s.PredictionByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPredictions(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	t1 := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	mock.ExpectQuery(`WHERE user_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2`).
		WithArgs("u1", 2).
		WillReturnRows(sqlmock.NewRows(predictionCols).
			AddRow("p2", "u1", "simple", []byte(`{"age":30}`), []byte(`[]`), 70.0, 40.0, 14600, t1).
			AddRow("p1", "u1", "standard", []byte(`{"age":30}`), []byte(`[]`), 75.0, 45.0, 16425, t0))

	list, err := s.ListPredictions(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID)
	assert.Equal(t, "simple", list[0].RuleSet)
	assert.Equal(t, "p1", list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPredictions_NoLimit(t *testing.T) {
	s, mock, cleanup := setupMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`WHERE user_id = \$1 ORDER BY created_at DESC, id DESC$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(predictionCols))

	list, err := s.ListPredictions(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolOptions(t *testing.T) {
	cfg := poolConfig{maxOpen: 1, maxIdle: 1, maxLifetime: time.Second}
	for _, opt := range []Option{
		WithMaxOpenConns(20),
		WithMaxIdleConns(0),
		WithConnMaxLifetime(time.Minute),
	} {
		opt(&cfg)
	}
	assert.Equal(t, 20, cfg.maxOpen)
	assert.Equal(t, 1, cfg.maxIdle)
	assert.Equal(t, time.Minute, cfg.maxLifetime)
}
