package scoring

import "errors"

// Sentinel kinds for scoring errors. The engine itself never fails; these
// cover rule set management only.
var (
	ErrInvalidRuleSet = errors.New("invalid rule set")
	ErrUnknownRuleSet = errors.New("unknown rule set")
)
