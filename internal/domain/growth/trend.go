package growth

// Trend summarizes growth velocity over the history window. It is derived
// signal data for the recommendation step and is never persisted.
type Trend struct {
	HasSufficientData bool    `json:"has_sufficient_data"`
	HeightVelocityCm  float64 `json:"height_velocity_cm"`
	WeightVelocityKg  float64 `json:"weight_velocity_kg"`
	Concerning        bool    `json:"concerning"`
}

// TrendAnalyzer computes velocity as the mean of successive differences over
// a date-ordered record sequence and flags a trend as concerning when growth
// stalls or the height sequence regresses beyond tolerance.
type TrendAnalyzer struct {
	// MinHeightVelocityCm is the slowest acceptable mean height gain per
	// interval before the trend is flagged.
	MinHeightVelocityCm float64
	// HeightToleranceCm allows for measurement jitter when checking that
	// heights never decrease between records.
	HeightToleranceCm float64
}

func DefaultTrendAnalyzer() TrendAnalyzer {
	return TrendAnalyzer{MinHeightVelocityCm: 0.2, HeightToleranceCm: 0.5}
}

// Analyze inspects a sequence ordered by measurement date ascending. Fewer
// than two records yields the zero-value trend with HasSufficientData false;
// it never fails.
func (a TrendAnalyzer) Analyze(records []*Record) Trend {
	if len(records) < 2 {
		return Trend{}
	}

	var heightSum, weightSum float64
	consistent := true
	for i := 1; i < len(records); i++ {
		dh := records[i].HeightCm - records[i-1].HeightCm
		dw := records[i].WeightKg - records[i-1].WeightKg
		heightSum += dh
		weightSum += dw
		if dh < -a.HeightToleranceCm {
			consistent = false
		}
	}
	n := float64(len(records) - 1)
	t := Trend{
		HasSufficientData: true,
		HeightVelocityCm:  heightSum / n,
		WeightVelocityKg:  weightSum / n,
	}
	t.Concerning = t.HeightVelocityCm < a.MinHeightVelocityCm || !consistent
	return t
}
