package growth

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Gender values accepted by the growth standard tables.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// MeasurementType identifies which anthropometric series a standard row or
// an assessment result refers to.
type MeasurementType string

const (
	MeasurementHeight            MeasurementType = "height"
	MeasurementWeight            MeasurementType = "weight"
	MeasurementBMI               MeasurementType = "bmi"
	MeasurementHeadCircumference MeasurementType = "head_circumference"
)

// AllMeasurements lists the series evaluated in a full assessment, in the
// order they are reported.
var AllMeasurements = []MeasurementType{
	MeasurementHeight,
	MeasurementWeight,
	MeasurementBMI,
	MeasurementHeadCircumference,
}

func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

func ValidMeasurement(m MeasurementType) bool {
	switch m {
	case MeasurementHeight, MeasurementWeight, MeasurementBMI, MeasurementHeadCircumference:
		return true
	}
	return false
}

// StandardRow is one reference datum of the growth standard table: the SD
// ladder for a gender, age in completed months and measurement series.
// Rows are loaded once at startup and never mutated.
type StandardRow struct {
	Gender      string          `db:"gender" json:"gender"`
	AgeMonths   int             `db:"age_months" json:"age_months"`
	Measurement MeasurementType `db:"measurement_type" json:"measurement_type"`
	SD3Neg      float64         `db:"sd3_neg" json:"sd3_neg"`
	SD2Neg      float64         `db:"sd2_neg" json:"sd2_neg"`
	SD1Neg      float64         `db:"sd1_neg" json:"sd1_neg"`
	Median      float64         `db:"median" json:"median"`
	SD1Pos      float64         `db:"sd1_pos" json:"sd1_pos"`
	SD2Pos      float64         `db:"sd2_pos" json:"sd2_pos"`
	SD3Pos      float64         `db:"sd3_pos" json:"sd3_pos"`
}

// Record maps to the growth_record table: a single measurement event for one
// child. BMI is derived from height and weight, never supplied by the caller.
type Record struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	ChildID             uuid.UUID `db:"child_id" json:"child_id"`
	MeasuredAt          time.Time `db:"measured_at" json:"measured_at"`
	HeightCm            float64   `db:"height_cm" json:"height_cm"`
	WeightKg            float64   `db:"weight_kg" json:"weight_kg"`
	HeadCircumferenceCm float64   `db:"head_circumference_cm" json:"head_circumference_cm"`
	BMI                 float64   `db:"bmi" json:"bmi"`
	Note                *string   `db:"note" json:"note,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Value returns the measured value for the given series.
func (r *Record) Value(m MeasurementType) float64 {
	switch m {
	case MeasurementHeight:
		return r.HeightCm
	case MeasurementWeight:
		return r.WeightKg
	case MeasurementBMI:
		return r.BMI
	case MeasurementHeadCircumference:
		return r.HeadCircumferenceCm
	}
	return 0
}

// ComputeBMI derives body mass index from weight in kilograms and height in
// centimetres, rounded to two decimal places.
func ComputeBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*100) / 100
}

// daysPerMonth is the average month length used to convert an age in days to
// fractional months, matching the reference tables' month granularity.
const daysPerMonth = 30.44

// AgeInMonths returns the exact fractional age at the measurement date.
func AgeInMonths(birthDate, at time.Time) float64 {
	days := at.Sub(birthDate).Hours() / 24
	return days / daysPerMonth
}

// MeasurementResult is the per-series outcome of an assessment.
type MeasurementResult struct {
	Measurement MeasurementType `json:"measurement_type"`
	Value       float64         `json:"value"`
	ZScore      float64         `json:"z_score"`
	Status      string          `json:"status"`
}

// Assessment is the derived output for one (child, measurement event) pair.
// It is computed fresh on every request and never persisted.
type Assessment struct {
	ChildID         uuid.UUID           `json:"child_id"`
	RecordID        uuid.UUID           `json:"record_id"`
	AgeMonths       float64             `json:"age_months"`
	Results         []MeasurementResult `json:"results"`
	Trend           Trend               `json:"trend"`
	Recommendations []string            `json:"recommendations"`
}
