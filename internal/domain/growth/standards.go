package growth

import (
	"context"
	"math"
)

// StandardSource resolves the reference SD ladder for a gender, whole age in
// months and measurement series. Implementations return ErrStandardNotFound
// when the table has no row for the key.
type StandardSource interface {
	Lookup(ctx context.Context, gender string, ageMonths int, m MeasurementType) (*StandardRow, error)
}

// StandardCache is an immutable in-memory StandardSource, built once at
// startup from the full standards table. Reads are lock-free.
type StandardCache struct {
	rows map[standardKey]*StandardRow
}

type standardKey struct {
	gender      string
	ageMonths   int
	measurement MeasurementType
}

func NewStandardCache(rows []*StandardRow) *StandardCache {
	c := &StandardCache{rows: make(map[standardKey]*StandardRow, len(rows))}
	for _, r := range rows {
		c.rows[standardKey{r.Gender, r.AgeMonths, r.Measurement}] = r
	}
	return c
}

func (c *StandardCache) Len() int { return len(c.rows) }

func (c *StandardCache) Lookup(_ context.Context, gender string, ageMonths int, m MeasurementType) (*StandardRow, error) {
	r, ok := c.rows[standardKey{gender, ageMonths, m}]
	if !ok {
		return nil, ErrStandardNotFound
	}
	return r, nil
}

// InterpolatedStandard resolves the SD ladder at a fractional age by linear
// interpolation between the two bounding whole-month rows. Whole-month ages
// short-circuit to a single lookup. Both bounding rows must exist.
func InterpolatedStandard(ctx context.Context, src StandardSource, gender string, ageMonths float64, m MeasurementType) (*StandardRow, error) {
	if ageMonths < 0 {
		return nil, ErrInvalidAge
	}
	lower := int(math.Floor(ageMonths))
	upper := int(math.Ceil(ageMonths))

	lo, err := src.Lookup(ctx, gender, lower, m)
	if err != nil {
		return nil, err
	}
	if lower == upper {
		return lo, nil
	}
	hi, err := src.Lookup(ctx, gender, upper, m)
	if err != nil {
		return nil, err
	}

	f := ageMonths - float64(lower)
	blend := func(a, b float64) float64 { return a + (b-a)*f }
	return &StandardRow{
		Gender:      gender,
		AgeMonths:   lower,
		Measurement: m,
		SD3Neg:      blend(lo.SD3Neg, hi.SD3Neg),
		SD2Neg:      blend(lo.SD2Neg, hi.SD2Neg),
		SD1Neg:      blend(lo.SD1Neg, hi.SD1Neg),
		Median:      blend(lo.Median, hi.Median),
		SD1Pos:      blend(lo.SD1Pos, hi.SD1Pos),
		SD2Pos:      blend(lo.SD2Pos, hi.SD2Pos),
		SD3Pos:      blend(lo.SD3Pos, hi.SD3Pos),
	}, nil
}
