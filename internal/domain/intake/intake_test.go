package intake_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/okian/lifespan/internal/domain/intake"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCoerce(t *testing.T) {
	Convey("Given form values", t, func() {
		Convey("When every canonical field is supplied", func() {
			p := intake.Coerce(url.Values{
				"age":                {"30"},
				"sex":                {"Female"},
				"bmi":                {"22"},
				"diabetic":           {"no"},
				"systolic_bp":        {"115"},
				"smoker":             {"off"},
				"sleep_hours":        {"7.5"},
				"exercise_minutes":   {"200"},
				"alcohol_units":      {"0"},
				"fruit_veg_servings": {"5"},
				"stress_level":       {"3"},
				"cholesterol":        {"170"},
			})

			Convey("Then the profile scores like the healthy reference", func() {
				So(p.Age, ShouldEqual, 30)
				So(p.Sex, ShouldEqual, scoring.SexFemale)
				So(p.SleepHours, ShouldResemble, scoring.Measured(7.5))
				So(p.AlcoholUnits, ShouldResemble, scoring.Measured(0))
				res := scoring.NewEngine().Score(p)
				So(res.PredictedLifeExpectancy, ShouldEqual, 93.5)
				So(res.DaysLeft, ShouldEqual, 23177)
			})
		})

		Convey("When values are empty or unparsable", func() {
			p := intake.Coerce(url.Values{
				"age":         {"forty"},
				"bmi":         {""},
				"sleep_hours": {"lots"},
				"stress":      {"NaN"},
			})

			Convey("Then they become absent and age falls back to 0", func() {
				So(p.Age, ShouldEqual, 0)
				So(p.BMI.Valid, ShouldBeFalse)
				So(p.SleepHours.Valid, ShouldBeFalse)
				So(p.StressLevel.Valid, ShouldBeFalse)
			})
		})

		Convey("When booleans use different spellings", func() {
			yes := []string{"yes", "YES", "true", "on", "1", "y"}
			for _, s := range yes {
				So(intake.Bool(s), ShouldBeTrue)
			}
			for _, s := range []string{"no", "", "false", "0", "maybe"} {
				So(intake.Bool(s), ShouldBeFalse)
			}
		})

		Convey("When the legacy simple form is submitted", func() {
			form := url.Values{
				"age":            {"30"},
				"diabetic":       {"no"},
				"blood_pressure": {"high"},
				"smoking":        {"no"},
				"sleep":          {"7"},
				"exercise":       {"2"},
				"alcohol":        {"no"},
				"junk_food":      {"no"},
			}
			p := intake.Coerce(form)

			Convey("Then legacy fields map onto the canonical profile", func() {
				So(p.SystolicBP, ShouldResemble, scoring.Measured(145))
				So(p.ExerciseMinutes, ShouldResemble, scoring.Measured(60))
				So(p.AlcoholUnits, ShouldResemble, scoring.Measured(0))
				So(p.SleepHours, ShouldResemble, scoring.Measured(7))
			})

			Convey("And the simple rule set scores it", func() {
				e := scoring.NewEngine(scoring.WithRuleSet(scoring.Simple()))
				So(e.Score(p).PredictedLifeExpectancy, ShouldEqual, 64)
			})

			Convey("And a yes to alcohol costs the simple penalty", func() {
				form.Set("alcohol", "yes")
				form.Set("blood_pressure", "normal")
				form.Set("exercise", "3")
				e := scoring.NewEngine(scoring.WithRuleSet(scoring.Simple()))
				So(e.Score(intake.Coerce(form)).PredictedLifeExpectancy, ShouldEqual, 68)
			})
		})

		Convey("When both a systolic reading and the legacy field are given", func() {
			p := intake.Coerce(url.Values{"age": {"50"}, "systolic_bp": {"125"}, "blood_pressure": {"high"}})

			Convey("Then the reading wins", func() {
				So(p.SystolicBP, ShouldResemble, scoring.Measured(125))
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given submitted fields", t, func() {
		Convey("When age is missing", func() {
			err := intake.Validate(intake.Fields{"sleep_hours": "7"})

			Convey("Then a missing field error names it", func() {
				var fe *intake.FieldError
				So(errors.As(err, &fe), ShouldBeTrue)
				So(fe.Field, ShouldEqual, "age")
				So(errors.Is(err, intake.ErrMissing), ShouldBeTrue)
			})
		})

		Convey("When age is out of range or not a number", func() {
			for _, age := range []string{"-1", "151", "old"} {
				So(errors.Is(intake.Validate(intake.Fields{"age": age}), intake.ErrInvalid), ShouldBeTrue)
			}
		})

		Convey("When age is valid and optional fields are junk", func() {
			err := intake.Validate(intake.Fields{"age": "42", "bmi": "heavy"})

			Convey("Then validation passes", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestFromJSON(t *testing.T) {
	Convey("Given a JSON body", t, func() {
		Convey("When it mixes numbers, strings, booleans and nulls", func() {
			f, err := intake.FromJSON([]byte(`{"age":41,"sex":"m","smoker":true,"bmi":null,"sleep_hours":"6.5"}`))

			Convey("Then every value is flattened to text", func() {
				So(err, ShouldBeNil)
				So(f.Get("age"), ShouldEqual, "41")
				So(f.Get("smoker"), ShouldEqual, "true")
				So(f.Get("bmi"), ShouldEqual, "")
				p := intake.Coerce(f)
				So(p.Smoker, ShouldBeTrue)
				So(p.Sex, ShouldEqual, scoring.SexMale)
				So(p.SleepHours, ShouldResemble, scoring.Measured(6.5))
			})
		})

		Convey("When it contains a nested object", func() {
			_, err := intake.FromJSON([]byte(`{"age":{"years":4}}`))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, intake.ErrInvalid), ShouldBeTrue)
			})
		})

		Convey("When it is not JSON", func() {
			_, err := intake.FromJSON([]byte(`age=4`))

			Convey("Then it is malformed", func() {
				So(errors.Is(err, intake.ErrMalformed), ShouldBeTrue)
			})
		})
	})
}
