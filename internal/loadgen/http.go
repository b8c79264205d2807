package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/lifespan/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request with an optional JSON body and bearer token and returns
// the status code and the response body.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, body any, headers map[string]string) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

type submissionAck struct {
	Duplicate  bool `json:"duplicate"`
	Prediction *struct {
		ID                      string  `json:"id"`
		PredictedLifeExpectancy float64 `json:"predicted_life_expectancy"`
	} `json:"prediction"`
}

type submitResult int

const (
	resultStored submitResult = iota
	resultDuplicate
	resultFailed
)

// submitPredictions posts submissions concurrently. Every DuplicateEvery-th
// submission is sent a second time with the same key, which the server must
// acknowledge as a duplicate. It returns how many predictions each user had
// stored.
func submitPredictions(ctx context.Context, config *Config, client *HTTPClient, accounts []account, subs []Submission, stats *Stats) []int {
	log := logger.Get()
	log.Info(ctx, "submitting predictions",
		logger.Int("submissions", len(subs)), logger.Int("workers", config.Workers))

	var (
		sent, stored, replayed, dupes, failed int64
		mu                                    sync.Mutex
		perUser                               = make([]int, len(accounts))
		minExp                                = math.MaxFloat64
		maxExp                                = 0.0
	)

	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sub := subs[i]
				res, exp := submitSingle(ctx, client, accounts[sub.User].Token, sub)
				atomic.AddInt64(&sent, 1)
				switch res {
				case resultStored:
					atomic.AddInt64(&stored, 1)
					mu.Lock()
					perUser[sub.User]++
					minExp = min(minExp, exp)
					maxExp = max(maxExp, exp)
					mu.Unlock()
				case resultDuplicate:
					atomic.AddInt64(&dupes, 1)
				case resultFailed:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "submission failed", logger.String("key", sub.Key))
					}
					continue
				}

				if config.DuplicateEvery > 0 && i%config.DuplicateEvery == 0 {
					atomic.AddInt64(&replayed, 1)
					if again, _ := submitSingle(ctx, client, accounts[sub.User].Token, sub); again == resultDuplicate {
						atomic.AddInt64(&dupes, 1)
					} else {
						atomic.AddInt64(&failed, 1)
						log.Warn(ctx, "replayed submission was not acknowledged as duplicate", logger.String("key", sub.Key))
					}
				}
			}
		}()
	}

feed:
	for i := range subs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	stats.SubmissionsSent = int(atomic.LoadInt64(&sent))
	stats.SubmissionsStored = int(atomic.LoadInt64(&stored))
	stats.SubmissionsReplayed = int(atomic.LoadInt64(&replayed))
	stats.DuplicatesAcked = int(atomic.LoadInt64(&dupes))
	stats.SubmissionsFailed = int(atomic.LoadInt64(&failed))
	if stats.SubmissionsStored > 0 {
		stats.MinExpectancy, stats.MaxExpectancy = minExp, maxExp
	}

	log.Info(ctx, "submission completed",
		logger.Int("stored", stats.SubmissionsStored),
		logger.Int("duplicates", stats.DuplicatesAcked),
		logger.Int("failed", stats.SubmissionsFailed))
	return perUser
}

// submitSingle posts one submission and returns the outcome and, for stored
// predictions, the expectancy.
func submitSingle(ctx context.Context, client *HTTPClient, token string, sub Submission) (submitResult, float64) {
	status, body, err := client.do(ctx, http.MethodPost, "/predictions", token, sub.Profile,
		map[string]string{"Idempotency-Key": sub.Key})
	if err != nil {
		return resultFailed, 0
	}
	var ack submissionAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return resultFailed, 0
	}
	switch {
	case status == http.StatusCreated && ack.Prediction != nil:
		return resultStored, ack.Prediction.PredictedLifeExpectancy
	case status == http.StatusOK && ack.Duplicate:
		return resultDuplicate, 0
	default:
		return resultFailed, 0
	}
}
