package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/lifespan/internal/adapters/render"
	"github.com/okian/lifespan/internal/adapters/repository"
	"github.com/okian/lifespan/internal/domain/dedupe"
	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	"github.com/okian/lifespan/internal/domain/types"
	"github.com/okian/lifespan/pkg/logger"
	"github.com/okian/lifespan/pkg/metrics"
)

// Predict scores profile with the active rule set and stores the result for
// user. A repeated idempotency key is acknowledged as a duplicate and nothing
// is stored.
func (s *Service) Predict(ctx context.Context, user *model.User, profile scoring.HealthProfile, idempotencyKey string) (types.Submission, error) {
	if user == nil {
		return types.Submission{}, ErrUnauthorized
	}

	var key string
	if idempotencyKey != "" {
		key = dedupe.Key(user.ID, idempotencyKey)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordPredictionDuplicate()
			s.logger.Debug(ctx, "duplicate prediction submission",
				logger.String("user_id", user.ID))
			return types.Submission{Duplicate: true}, nil
		}
	}

	engine := s.registry.Active()
	start := time.Now()
	ev := engine.Evaluate(profile)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)

	p := &model.Prediction{
		ID:          s.newID(),
		UserID:      user.ID,
		RuleSet:     ev.RuleSet,
		Profile:     profile,
		Result:      ev.Result,
		Adjustments: ev.Adjustments,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.SavePrediction(ctx, p); err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return types.Submission{}, fmt.Errorf("save prediction: %w", err)
	}

	metrics.RecordPrediction(p.RuleSet, p.Result.PredictedLifeExpectancy)
	s.logger.Info(ctx, "prediction stored",
		logger.String("prediction_id", p.ID),
		logger.String("user_id", user.ID),
		logger.String("ruleset", p.RuleSet),
		logger.Float64("expectancy", p.Result.PredictedLifeExpectancy),
	)
	s.notify(ctx, model.Event{
		Type:   model.EventPredictionCreated,
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Prediction: &model.PredictionEvent{
			ID:                      p.ID,
			RuleSet:                 p.RuleSet,
			PredictedLifeExpectancy: p.Result.PredictedLifeExpectancy,
			YearsLeft:               p.Result.YearsLeft,
			DaysLeft:                p.Result.DaysLeft,
		},
	})

	view := types.NewPrediction(p)
	return types.Submission{Prediction: &view}, nil
}

// Preview scores profile without storing anything. An empty ruleset selects
// the active one.
func (s *Service) Preview(ctx context.Context, profile scoring.HealthProfile, ruleset string) (types.Preview, error) {
	engine, err := s.registry.Engine(ruleset)
	if err != nil {
		return types.Preview{}, err
	}
	metrics.RecordPreview()
	return types.Preview{Evaluation: engine.Evaluate(profile), Disclaimer: scoring.Disclaimer}, nil
}

// Get returns a prediction readable by user: its owner or an admin.
func (s *Service) Get(ctx context.Context, user *model.User, id string) (*model.Prediction, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	p, err := s.store.PredictionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != user.ID && !user.IsAdmin() {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns up to limit of user's predictions, newest first. A limit of
// zero or less returns all of them.
func (s *Service) List(ctx context.Context, user *model.User, limit int) (types.PredictionList, error) {
	if user == nil {
		return types.PredictionList{}, ErrUnauthorized
	}
	preds, err := s.store.ListPredictions(ctx, user.ID, limit)
	if err != nil {
		return types.PredictionList{}, err
	}
	out := types.PredictionList{Predictions: make([]types.Prediction, 0, len(preds))}
	for _, p := range preds {
		out.Predictions = append(out.Predictions, types.NewPrediction(p))
	}
	out.Count = len(out.Predictions)
	return out, nil
}

// ExportPDF renders one of user's own predictions as a PDF report.
func (s *Service) ExportPDF(ctx context.Context, user *model.User, id string) ([]byte, error) {
	p, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != user.ID {
		return nil, ErrNotFound
	}
	return render.PredictionPDF(p, user.Name)
}

// ExportXLSX renders user's full history as a spreadsheet.
func (s *Service) ExportXLSX(ctx context.Context, user *model.User) ([]byte, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	preds, err := s.store.ListPredictions(ctx, user.ID, 0)
	if err != nil {
		return nil, err
	}
	return render.HistoryXLSX(preds)
}

// RuleSets lists the registered rule sets and the active one.
func (s *Service) RuleSets(_ context.Context) types.RuleSets {
	names := s.registry.Names()
	out := types.RuleSets{Active: s.registry.ActiveName(), RuleSets: make([]scoring.RuleSet, 0, len(names))}
	for _, name := range names {
		e, err := s.registry.Engine(name)
		if err != nil {
			continue
		}
		out.RuleSets = append(out.RuleSets, e.RuleSet())
	}
	return out
}

// ActivateRuleSet switches the active rule set. Only admins may do so.
func (s *Service) ActivateRuleSet(ctx context.Context, user *model.User, name string) error {
	if user == nil {
		return ErrUnauthorized
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	if err := s.registry.Activate(name); err != nil {
		return err
	}
	s.logger.Info(ctx, "active rule set changed",
		logger.String("ruleset", name), logger.String("by", user.ID))
	return nil
}
