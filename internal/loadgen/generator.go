package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/lifespan/pkg/logger"
)

const randomFloatDivisor = 1000000

// Cohorts shape the generated profiles.
const (
	cohortHealthy = iota
	cohortAverage
	cohortAtRisk
	cohortSparse
	cohortCount
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func between(lo, hi float64) float64 {
	return math.Round((lo+getRandomFloat()*(hi-lo))*10) / 10
}

func chance(p float64) bool {
	return getRandomFloat() < p
}

// generateSubmissions creates PerUser submissions for each of users accounts,
// each with its own idempotency key.
func generateSubmissions(ctx context.Context, config *Config, users int) ([]Submission, error) {
	out := make([]Submission, 0, users*config.PerUser)
	for u := 0; u < users; u++ {
		for i := 0; i < config.PerUser; i++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled during generation: %w", err)
			}
			out = append(out, Submission{User: u, Key: uuid.NewString(), Profile: generateProfile()})
		}
	}
	logger.Get().Info(ctx, "generated submissions", logger.Int("count", len(out)))
	return out, nil
}

// generateProfile creates one profile from a random cohort.
func generateProfile() Profile {
	n, _ := rand.Int(rand.Reader, big.NewInt(cohortCount))
	sex := "female"
	if chance(0.5) {
		sex = "male"
	}
	age := int(between(18, 90))

	switch n.Int64() {
	case cohortHealthy:
		return Profile{
			"age": age, "sex": sex,
			"bmi":                between(19, 25),
			"systolic_bp":        between(105, 125),
			"sleep_hours":        between(7, 9),
			"exercise_minutes":   between(150, 400),
			"alcohol_units":      between(0, 4),
			"fruit_veg_servings": between(5, 9),
			"stress_level":       between(1, 4),
			"cholesterol":        between(150, 195),
		}
	case cohortAtRisk:
		return Profile{
			"age": age, "sex": sex,
			"bmi":                between(30, 42),
			"diabetic":           chance(0.5),
			"systolic_bp":        between(140, 180),
			"smoker":             chance(0.7),
			"sleep_hours":        between(4, 6),
			"exercise_minutes":   between(0, 60),
			"alcohol_units":      between(14, 40),
			"fruit_veg_servings": between(0, 2),
			"stress_level":       between(7, 10),
			"cholesterol":        between(240, 320),
			"junk_food":          true,
		}
	case cohortSparse:
		// Only the required field plus legacy answers.
		bp := []string{"low", "normal", "high"}
		i, _ := rand.Int(rand.Reader, big.NewInt(int64(len(bp))))
		alcohol := "no"
		if chance(0.5) {
			alcohol = "yes"
		}
		return Profile{"age": age, "blood_pressure": bp[i.Int64()], "alcohol": alcohol, "exercise": int(between(0, 7))}
	default:
		return Profile{
			"age": age, "sex": sex,
			"bmi":                between(22, 31),
			"diabetic":           chance(0.1),
			"systolic_bp":        between(115, 145),
			"smoker":             chance(0.2),
			"sleep_hours":        between(6, 8),
			"exercise_minutes":   between(60, 180),
			"alcohol_units":      between(2, 14),
			"fruit_veg_servings": between(2, 5),
			"stress_level":       between(3, 7),
			"cholesterol":        between(180, 240),
			"junk_food":          chance(0.4),
		}
	}
}
