package scoring_test

import (
	"encoding/json"
	"testing"

	scoring "github.com/okian/lifespan/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHealthProfile_Normalize(t *testing.T) {
	Convey("Given a profile with out-of-domain values", t, func() {
		p := scoring.HealthProfile{
			Age:         -3,
			Sex:         "F",
			BMI:         scoring.Measured(0),
			SystolicBP:  scoring.Measured(-120),
			StressLevel: scoring.Measured(42),
			SleepHours:  scoring.Measured(0),
		}

		Convey("When it is normalized", func() {
			n := p.Normalize()

			Convey("Then every field is brought into its domain", func() {
				So(n.Age, ShouldEqual, 0)
				So(n.Sex, ShouldEqual, scoring.SexFemale)
				So(n.BMI.Valid, ShouldBeFalse)
				So(n.SystolicBP.Valid, ShouldBeFalse)
				So(n.StressLevel, ShouldResemble, scoring.Measured(10))
				So(n.SleepHours, ShouldResemble, scoring.Measured(0))
			})

			Convey("And the original is untouched", func() {
				So(p.Age, ShouldEqual, -3)
			})
		})
	})
}

func TestParseSex(t *testing.T) {
	Convey("Given free-form sex values", t, func() {
		So(scoring.ParseSex(" Female "), ShouldEqual, scoring.SexFemale)
		So(scoring.ParseSex("m"), ShouldEqual, scoring.SexMale)
		So(scoring.ParseSex("other"), ShouldEqual, scoring.SexUnspecified)
		So(scoring.ParseSex(""), ShouldEqual, scoring.SexUnspecified)
	})
}

func TestMeasurement_JSON(t *testing.T) {
	Convey("Given a profile encoded as JSON", t, func() {
		in := `{"age":41,"sex":"male","bmi":null,"sleep_hours":0,"stress_level":6}`

		Convey("When it is decoded", func() {
			var p scoring.HealthProfile
			So(json.Unmarshal([]byte(in), &p), ShouldBeNil)

			Convey("Then null and missing are absent while zero is present", func() {
				So(p.Age, ShouldEqual, 41)
				So(p.BMI.Valid, ShouldBeFalse)
				So(p.Cholesterol.Valid, ShouldBeFalse)
				So(p.SleepHours, ShouldResemble, scoring.Measured(0))
				So(p.StressLevel, ShouldResemble, scoring.Measured(6))
			})

			Convey("And encoding writes absent values as null", func() {
				out, err := json.Marshal(p)
				So(err, ShouldBeNil)
				So(string(out), ShouldContainSubstring, `"bmi":null`)
				So(string(out), ShouldContainSubstring, `"sleep_hours":0`)
			})
		})

		Convey("When a measurement is not a number", func() {
			var p scoring.HealthProfile
			err := json.Unmarshal([]byte(`{"bmi":"tall"}`), &p)

			Convey("Then decoding fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
