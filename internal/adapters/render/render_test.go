package render_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/lifespan/internal/adapters/render"
	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func samplePrediction(id string, at time.Time) *model.Prediction {
	return &model.Prediction{
		ID:      id,
		UserID:  "u1",
		RuleSet: "standard",
		Profile: scoring.HealthProfile{
			Age:        40,
			Sex:        scoring.SexFemale,
			BMI:        scoring.Measured(22.5),
			Smoker:     true,
			SleepHours: scoring.Measured(7),
		},
		Result: scoring.PredictionResult{PredictedLifeExpectancy: 74.5, YearsLeft: 34.5, DaysLeft: 12592},
		Adjustments: []scoring.Adjustment{
			{Rule: "smoking", Field: scoring.FieldSmoker, Delta: -10},
			{Rule: "diabetes", Field: scoring.FieldDiabetic, Delta: 0},
		},
		CreatedAt: at,
	}
}

func TestProfileRows(t *testing.T) {
	Convey("Given a partially filled profile", t, func() {
		rows := render.ProfileRows(samplePrediction("p1", time.Now()).Profile)
		byLabel := map[string]string{}
		for _, r := range rows {
			byLabel[r.Label] = r.Value
		}

		Convey("Then every input is listed in a fixed order", func() {
			So(len(rows), ShouldEqual, 13)
			So(rows[0].Label, ShouldEqual, "Age")
			So(rows[0].Value, ShouldEqual, "40")
		})

		Convey("Then present readings are formatted and absent ones are marked", func() {
			So(byLabel["BMI"], ShouldEqual, "22.5")
			So(byLabel["Sleep (hours/night)"], ShouldEqual, "7")
			So(byLabel["Systolic blood pressure"], ShouldEqual, "not provided")
			So(byLabel["Smoker"], ShouldEqual, "yes")
			So(byLabel["Diabetic"], ShouldEqual, "no")
			So(byLabel["Sex"], ShouldEqual, "female")
		})
	})
}

func TestPredictionPDF(t *testing.T) {
	Convey("Given a stored prediction", t, func() {
		p := samplePrediction("p1", time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

		Convey("When rendering it as PDF", func() {
			out, err := render.PredictionPDF(p, "Ann")

			Convey("Then a PDF document is produced", func() {
				So(err, ShouldBeNil)
				So(bytes.HasPrefix(out, []byte("%PDF-")), ShouldBeTrue)
				So(bytes.Contains(out, []byte("%%EOF")), ShouldBeTrue)
			})
		})

		Convey("When the owner and rule names are not ASCII", func() {
			p.Adjustments = append(p.Adjustments, scoring.Adjustment{Rule: "Schlafmangel ≥ 2h", Delta: -1.5})
			out, err := render.PredictionPDF(p, "José Núñez 李")

			Convey("Then a PDF document is still produced", func() {
				So(err, ShouldBeNil)
				So(bytes.HasPrefix(out, []byte("%PDF-")), ShouldBeTrue)
			})
		})

		Convey("When the prediction is nil", func() {
			_, err := render.PredictionPDF(nil, "Ann")

			Convey("Then rendering fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestHistoryXLSX(t *testing.T) {
	Convey("Given a history of two predictions", t, func() {
		at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
		history := []*model.Prediction{
			samplePrediction("p2", at.Add(time.Hour)),
			samplePrediction("p1", at),
		}

		Convey("When exporting it as a spreadsheet", func() {
			out, err := render.HistoryXLSX(history)
			So(err, ShouldBeNil)

			f, err := excelize.OpenReader(bytes.NewReader(out))
			So(err, ShouldBeNil)
			defer f.Close()
			rows, err := f.GetRows(render.HistorySheet)
			So(err, ShouldBeNil)

			Convey("Then the header and one row per prediction are present", func() {
				So(len(rows), ShouldEqual, 3)
				So(rows[0][0], ShouldEqual, "ID")
				So(rows[0][len(render.HistoryHeader)-1], ShouldEqual, "Days Left")
				So(rows[1][0], ShouldEqual, "p2")
				So(rows[2][0], ShouldEqual, "p1")
			})

			Convey("Then values land in their columns", func() {
				So(rows[1][1], ShouldEqual, "2026-04-01 10:00:00")
				So(rows[1][2], ShouldEqual, "standard")
				So(rows[1][3], ShouldEqual, "40")
				So(rows[1][5], ShouldEqual, "22.5")
				So(rows[1][7], ShouldEqual, "")
				So(rows[1][8], ShouldEqual, "yes")
				So(rows[1][16], ShouldEqual, "74.5")
				So(rows[1][18], ShouldEqual, "12592")
			})
		})

		Convey("When exporting an empty history", func() {
			out, err := render.HistoryXLSX(nil)
			So(err, ShouldBeNil)
			f, err := excelize.OpenReader(bytes.NewReader(out))
			So(err, ShouldBeNil)
			defer f.Close()
			rows, err := f.GetRows(render.HistorySheet)
			So(err, ShouldBeNil)

			Convey("Then only the header is written", func() {
				So(len(rows), ShouldEqual, 1)
			})
		})
	})
}
