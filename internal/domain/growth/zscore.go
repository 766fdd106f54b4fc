package growth

import "math"

// ZScore measures how many reference deviations a value sits from the median.
// The spread unit is the distance from the median to the +1 SD line, applied
// in both directions.
func ZScore(value, median, sd1pos float64) float64 {
	spread := sd1pos - median
	if spread == 0 {
		return 0
	}
	return (value - median) / spread
}

// Band maps a half-open Z-score interval [Min, Max) to a status label.
// A Band with Max = +Inf closes the ladder upward.
type Band struct {
	Min   float64
	Max   float64
	Label string
}

// Classifier holds the per-measurement banding of Z-scores into nutritional
// status labels. Thresholds are injected at construction so deployments can
// tune the cutoffs without code changes.
type Classifier struct {
	bands map[MeasurementType][]Band
}

func NewClassifier(bands map[MeasurementType][]Band) *Classifier {
	return &Classifier{bands: bands}
}

// Classify resolves the status label for a Z-score. Unknown measurement
// types or scores outside every band return the empty string.
func (c *Classifier) Classify(m MeasurementType, z float64) string {
	for _, b := range c.bands[m] {
		if z >= b.Min && z < b.Max {
			return b.Label
		}
	}
	return ""
}

// DefaultClassifier carries the standard ±1/±2/±3 SD cutoffs with the
// labels the mobile clients render.
func DefaultClassifier() *Classifier {
	inf := math.Inf(1)
	return NewClassifier(map[MeasurementType][]Band{
		MeasurementHeight: {
			{-inf, -3, "Thấp còi độ 2"},
			{-3, -2, "Thấp còi độ 1"},
			{-2, 2, "Bình thường"},
			{2, 3, "Cao"},
			{3, inf, "Rất cao"},
		},
		MeasurementWeight: {
			{-inf, -3, "Suy dinh dưỡng nặng"},
			{-3, -2, "Suy dinh dưỡng"},
			{-2, 1, "Bình thường"},
			{1, 2, "Nguy cơ thừa cân"},
			{2, 3, "Thừa cân"},
			{3, inf, "Béo phì"},
		},
		MeasurementBMI: {
			{-inf, -3, "Suy dinh dưỡng nặng"},
			{-3, -2, "Suy dinh dưỡng"},
			{-2, 1, "Bình thường"},
			{1, 2, "Thừa cân"},
			{2, 3, "Béo phì độ 1"},
			{3, inf, "Béo phì độ 2"},
		},
		MeasurementHeadCircumference: {
			{-inf, -2, "Vòng đầu nhỏ"},
			{-2, 2, "Bình thường"},
			{2, inf, "Vòng đầu lớn"},
		},
	})
}
