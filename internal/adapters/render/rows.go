// Package render produces downloadable documents for predictions: a PDF
// report for one prediction and a spreadsheet of a user's history.
package render

import (
	"strconv"

	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

const notProvided = "not provided"

// Row is one labelled input of a profile.
type Row struct {
	Label string
	Value string
}

// ProfileRows lists the inputs of p in a fixed order. Absent readings are
// shown as "not provided".
func ProfileRows(p scoring.HealthProfile) []Row {
	return []Row{
		{"Age", strconv.Itoa(p.Age)},
		{"Sex", string(p.Sex)},
		{"BMI", measurement(p.BMI)},
		{"Diabetic", yesNo(p.Diabetic)},
		{"Systolic blood pressure", measurement(p.SystolicBP)},
		{"Smoker", yesNo(p.Smoker)},
		{"Sleep (hours/night)", measurement(p.SleepHours)},
		{"Exercise (minutes/week)", measurement(p.ExerciseMinutes)},
		{"Alcohol (units/week)", measurement(p.AlcoholUnits)},
		{"Fruit and vegetables (servings/day)", measurement(p.FruitVegServings)},
		{"Stress level (1-10)", measurement(p.StressLevel)},
		{"Cholesterol (mg/dL)", measurement(p.Cholesterol)},
		{"Frequent junk food", yesNo(p.JunkFood)},
	}
}

func measurement(m scoring.Measurement) string {
	if !m.Valid {
		return notProvided
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// cellValue returns the spreadsheet value of m: the number, or nil for an
// empty cell.
func cellValue(m scoring.Measurement) any {
	if !m.Valid {
		return nil
	}
	return m.Value
}
