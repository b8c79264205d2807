package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lifespan/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrVerification is returned when the server's histories disagree with what
// was accepted.
var ErrVerification = errors.New("verification failed")

func (c *Config) withDefaults() {
	if c.Users <= 0 {
		c.Users = DefaultUsers
	}
	if c.PerUser <= 0 {
		c.PerUser = DefaultPerUser
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	config.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting lifespan load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("perUser", config.PerUser),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Int("duplicateEvery", config.DuplicateEvery))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Register and log in synthetic users
	accounts, err := registerAccounts(ctx, client, config.Users)
	if err != nil {
		return stats, fmt.Errorf("account setup failed: %w", err)
	}
	stats.UsersRegistered = len(accounts)

	// Step 3: Generate profiles
	subs, err := generateSubmissions(ctx, config, len(accounts))
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	// Step 4: Submit concurrently
	perUser := submitPredictions(ctx, config, client, accounts, subs, stats)

	// Step 5: Verify histories
	verifyErr := verifyHistories(ctx, config, client, accounts, perUser, stats)

	if config.OutputFile != "" {
		if err := saveSubmissions(ctx, config.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, verifyErr
	}
	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// registerAccounts creates n fresh users and logs each of them in.
func registerAccounts(ctx context.Context, client *HTTPClient, n int) ([]account, error) {
	run := uuid.NewString()[:8]
	accounts := make([]account, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("load-%s-%d@example.com", run, i)
		status, body, err := client.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
			"name": fmt.Sprintf("Load User %d", i), "email": email, "password": loadPassword,
		}, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusCreated {
			return nil, fmt.Errorf("register %s: status %d: %s", email, status, body)
		}

		status, body, err = client.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
			"email": email, "password": loadPassword,
		}, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("login %s: status %d: %s", email, status, body)
		}
		var login struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &login); err != nil {
			return nil, fmt.Errorf("login %s: %w", email, err)
		}
		accounts = append(accounts, account{Email: email, Token: login.Token})
	}
	logger.Get().Info(ctx, "accounts ready", logger.Int("count", len(accounts)))
	return accounts, nil
}

// saveSubmissions writes the generated submissions to a JSON file.
func saveSubmissions(ctx context.Context, filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "submissions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.SubmissionsSent > 0 {
		successRate = float64(stats.SubmissionsStored) / float64(stats.SubmissionsSent) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.SubmissionsSent+stats.SubmissionsReplayed) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("usersRegistered", stats.UsersRegistered),
		logger.Int("submissionsSent", stats.SubmissionsSent),
		logger.Int("submissionsStored", stats.SubmissionsStored),
		logger.Int("submissionsReplayed", stats.SubmissionsReplayed),
		logger.Int("duplicatesAcked", stats.DuplicatesAcked),
		logger.Int("submissionsFailed", stats.SubmissionsFailed),
		logger.Int("historiesVerified", stats.HistoriesVerified),
		logger.Float64("minExpectancy", stats.MinExpectancy),
		logger.Float64("maxExpectancy", stats.MaxExpectancy),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond))
}
