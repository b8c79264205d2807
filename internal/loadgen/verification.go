package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/okian/lifespan/pkg/logger"
)

type historyEntry struct {
	ID                      string    `json:"id"`
	PredictedLifeExpectancy float64   `json:"predicted_life_expectancy"`
	CreatedAt               time.Time `json:"created_at"`
}

type historyPage struct {
	Predictions []historyEntry `json:"predictions"`
	Count       int            `json:"count"`
}

// verifyHistories checks that each account's history holds exactly the
// predictions stored for it, newest first.
func verifyHistories(ctx context.Context, config *Config, client *HTTPClient, accounts []account, perUser []int, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying histories", logger.Int("accounts", len(accounts)))

	var mismatches []string
	for i, acc := range accounts {
		page, err := fetchHistory(ctx, client, acc.Token, config.PerUser+1)
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("%s: %v", acc.Email, err))
			continue
		}
		if err := verifyHistory(page, perUser[i]); err != nil {
			mismatches = append(mismatches, fmt.Sprintf("%s: %v", acc.Email, err))
			continue
		}
		stats.HistoriesVerified++
	}

	if len(mismatches) > 0 {
		for _, m := range mismatches {
			log.Warn(ctx, "history mismatch", logger.String("detail", m))
		}
		return fmt.Errorf("%w: %d of %d histories disagree", ErrVerification, len(mismatches), len(accounts))
	}
	log.Info(ctx, "histories verified", logger.Int("count", stats.HistoriesVerified))
	return nil
}

func fetchHistory(ctx context.Context, client *HTTPClient, token string, limit int) (*historyPage, error) {
	status, body, err := client.do(ctx, http.MethodGet, fmt.Sprintf("/predictions?limit=%d", limit), token, nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("status %d", status)
	}
	var page historyPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// verifyHistory checks the count, id uniqueness, ordering and expectancy
// range of one history page.
func verifyHistory(page *historyPage, want int) error {
	if page.Count != want || len(page.Predictions) != want {
		return fmt.Errorf("expected %d predictions, got %d", want, page.Count)
	}
	seen := make(map[string]struct{}, len(page.Predictions))
	for _, p := range page.Predictions {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("prediction %s listed twice", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.PredictedLifeExpectancy <= 0 || p.PredictedLifeExpectancy > 150 {
			return fmt.Errorf("prediction %s has implausible expectancy %.1f", p.ID, p.PredictedLifeExpectancy)
		}
	}
	newestFirst := sort.SliceIsSorted(page.Predictions, func(i, j int) bool {
		return page.Predictions[i].CreatedAt.After(page.Predictions[j].CreatedAt)
	})
	if !newestFirst {
		return fmt.Errorf("history is not ordered newest first")
	}
	return nil
}
