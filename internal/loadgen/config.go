// Package loadgen drives a running lifespan server with synthetic users and
// health profiles, then checks that every accepted prediction is listed in
// its owner's history.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Users          int           // Number of synthetic accounts
	PerUser        int           // Predictions submitted per account
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	DuplicateEvery int           // Every n-th submission is replayed with the same key; 0 disables
	OutputFile     string        // Optional JSON file receiving the generated submissions
	Verbose        bool          // Log every failure
}

// Profile is the JSON body of a prediction request.
type Profile map[string]any

// Submission is one generated prediction request.
type Submission struct {
	User    int     `json:"user"`
	Key     string  `json:"idempotency_key"`
	Profile Profile `json:"profile"`
}

// account is a registered synthetic user.
type account struct {
	Email string
	Token string
}

// Stats holds run statistics.
type Stats struct {
	UsersRegistered     int
	SubmissionsSent     int
	SubmissionsStored   int
	SubmissionsReplayed int
	DuplicatesAcked     int
	SubmissionsFailed   int
	HistoriesVerified   int
	MinExpectancy       float64
	MaxExpectancy       float64
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
