package loadgen

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Defaults applied by Config.withDefaults.
const (
	DefaultUsers   = 20
	DefaultPerUser = 10
	DefaultTimeout = 30 * time.Second

	percentageMultiplier = 100
	loadPassword         = "loadgen-password"
)
