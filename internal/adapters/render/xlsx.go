package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	model "github.com/okian/lifespan/internal/domain/model"
)

// XLSXContentType is the media type of HistoryXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HistorySheet is the name of the worksheet written by HistoryXLSX.
const HistorySheet = "Predictions"

// HistoryHeader is the first row of the history worksheet.
var HistoryHeader = []string{
	"ID",
	"Date",
	"Rule Set",
	"Age",
	"Sex",
	"BMI",
	"Diabetic",
	"Systolic BP",
	"Smoker",
	"Sleep Hours",
	"Exercise Minutes",
	"Alcohol Units",
	"Fruit/Veg Servings",
	"Stress Level",
	"Cholesterol",
	"Junk Food",
	"Life Expectancy",
	"Years Left",
	"Days Left",
}

// HistoryXLSX writes predictions, one per row, in the given order.
func HistoryXLSX(predictions []*model.Prediction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HistorySheet); err != nil {
		return nil, fmt.Errorf("render: failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("render: failed to create header style: %w", err)
	}

	header := make([]any, len(HistoryHeader))
	for i, h := range HistoryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(HistorySheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("render: failed to write header: %w", err)
	}
	if err := f.SetRowStyle(HistorySheet, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("render: failed to style header: %w", err)
	}
	last, err := excelize.ColumnNumberToName(len(HistoryHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(HistorySheet, "A", last, 16); err != nil {
		return nil, fmt.Errorf("render: failed to set column width: %w", err)
	}

	for i, p := range predictions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			p.ID,
			p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			p.RuleSet,
			p.Profile.Age,
			string(p.Profile.Sex),
			cellValue(p.Profile.BMI),
			yesNo(p.Profile.Diabetic),
			cellValue(p.Profile.SystolicBP),
			yesNo(p.Profile.Smoker),
			cellValue(p.Profile.SleepHours),
			cellValue(p.Profile.ExerciseMinutes),
			cellValue(p.Profile.AlcoholUnits),
			cellValue(p.Profile.FruitVegServings),
			cellValue(p.Profile.StressLevel),
			cellValue(p.Profile.Cholesterol),
			yesNo(p.Profile.JunkFood),
			p.Result.PredictedLifeExpectancy,
			p.Result.YearsLeft,
			p.Result.DaysLeft,
		}
		if err := f.SetSheetRow(HistorySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("render: failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(HistorySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("render: failed to freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render: failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
