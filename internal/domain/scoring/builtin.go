package scoring

// Built-in rule set names.
const (
	RuleSetStandard = "standard"
	RuleSetSimple   = "simple"
)

// Standard is the complete rule table: base 78, ten adjustments, clamped to
// [50,100].
func Standard() RuleSet {
	return RuleSet{
		Name:        RuleSetStandard,
		Description: "Full profile with banded adjustments, clamped to [50,100]",
		Base:        78,
		Rules: []Rule{
			{
				Name: "sex", Field: FieldSex, Kind: KindCategory,
				Categories: map[string]float64{string(SexFemale): 3, string(SexMale): 1},
			},
			{
				Name: "bmi", Field: FieldBMI, Kind: KindBands,
				Bands: []Band{
					{Max: Bound(18.5), Delta: -2},
					{Min: Bound(18.5), Max: Bound(25), Delta: 2},
					{Min: Bound(25), Max: Bound(30), Delta: -1},
					{Min: Bound(30), Delta: -3},
				},
			},
			{
				Name: "blood_pressure", Field: FieldSystolicBP, Kind: KindBands,
				Bands: []Band{
					{Max: Bound(120), Delta: 1},
					{Min: Bound(120), Max: Bound(130), Delta: 0},
					{Min: Bound(130), Max: Bound(140), Delta: -1},
					{Min: Bound(140), Max: Bound(160), Delta: -3},
					{Min: Bound(160), Delta: -5},
				},
			},
			{Name: "diabetic", Field: FieldDiabetic, Kind: KindFlag, WhenTrue: -5},
			{Name: "smoker", Field: FieldSmoker, Kind: KindFlag, WhenTrue: -7},
			{
				Name: "sleep", Field: FieldSleepHours, Kind: KindBands,
				Bands: []Band{
					{Min: Bound(6.5), Max: Bound(8.5), MaxInclusive: true, Delta: 2},
					{Delta: -2},
				},
			},
			{
				Name: "exercise", Field: FieldExerciseMinutes, Kind: KindBands,
				Bands: []Band{
					{Min: Bound(150), Delta: 3},
					{Min: Bound(60), Delta: 1},
					{Delta: -1},
				},
			},
			{
				Name: "alcohol", Field: FieldAlcoholUnits, Kind: KindBands,
				Bands: []Band{
					{Max: Bound(0), MaxInclusive: true, Delta: 1},
					{Max: Bound(7), MaxInclusive: true, Delta: 0},
					{Max: Bound(14), MaxInclusive: true, Delta: -1},
					{Delta: -3},
				},
			},
			{
				Name: "fruit_veg", Field: FieldFruitVegServings, Kind: KindBands,
				Bands: []Band{
					{Min: Bound(5), Delta: 2},
					{Min: Bound(3), Delta: 1},
					{Delta: -1},
				},
			},
			{
				Name: "stress", Field: FieldStressLevel, Kind: KindScale,
				Scale: &Scale{Factor: -0.5, Pivot: 4, Min: Bound(-3), Max: Bound(6)},
			},
			{
				Name: "cholesterol", Field: FieldCholesterol, Kind: KindBands,
				Bands: []Band{
					{Max: Bound(180), Delta: 1},
					{Min: Bound(180), Max: Bound(200), Delta: 0},
					{Min: Bound(200), Max: Bound(240), Delta: -1},
					{Min: Bound(240), Delta: -2},
				},
			},
		},
		Clamp: ClampBand{Min: 50, Max: Bound(100)},
	}
}

// Simple is the coarse rule table: base 80 minus fixed penalties, rounded,
// with a hard floor of 30.
func Simple() RuleSet {
	return RuleSet{
		Name:        RuleSetSimple,
		Description: "Coarse fixed penalties, rounded, floor of 30",
		Base:        80,
		Rules: []Rule{
			{Name: "age", Field: FieldAge, Kind: KindScale, Scale: &Scale{Factor: -0.2}},
			{Name: "diabetic", Field: FieldDiabetic, Kind: KindFlag, WhenTrue: -8},
			{
				Name: "blood_pressure", Field: FieldSystolicBP, Kind: KindBands,
				Bands: []Band{{Min: Bound(140), Delta: -6}},
			},
			{Name: "smoker", Field: FieldSmoker, Kind: KindFlag, WhenTrue: -10},
			{
				Name: "sleep", Field: FieldSleepHours, Kind: KindBands,
				Bands: []Band{{Max: Bound(6), Delta: -5}},
			},
			{
				Name: "exercise", Field: FieldExerciseMinutes, Kind: KindBands,
				Bands: []Band{{Max: Bound(90), Delta: -4}},
			},
			{
				Name: "alcohol", Field: FieldAlcoholUnits, Kind: KindBands,
				Bands: []Band{{Min: Bound(0), Max: Bound(0), MaxInclusive: true, Delta: 0}, {Delta: -6}},
			},
			{Name: "junk_food", Field: FieldJunkFood, Kind: KindFlag, WhenTrue: -3},
		},
		Clamp:      ClampBand{Min: 30},
		RoundTotal: true,
	}
}

// Builtin returns all built-in rule sets.
func Builtin() []RuleSet {
	return []RuleSet{Standard(), Simple()}
}
