package growth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound   = errors.New("growth record not found")
	ErrChildNotFound    = errors.New("child not found")
	ErrStandardNotFound = errors.New("growth standard not found for the requested age")
	ErrInvalidAge       = errors.New("age must not be negative")
)

// historyWindow bounds the trend analysis lookback.
const historyWindow = 6 * 31 * 24 * time.Hour

type Service struct {
	records    RecordRepository
	standards  StandardSource
	children   ChildDirectory
	classifier *Classifier
	trend      TrendAnalyzer
}

func NewService(records RecordRepository, standards StandardSource, children ChildDirectory) *Service {
	return &Service{
		records:    records,
		standards:  standards,
		children:   children,
		classifier: DefaultClassifier(),
		trend:      DefaultTrendAnalyzer(),
	}
}

// WithClassifier overrides the default status banding.
func (s *Service) WithClassifier(c *Classifier) *Service {
	s.classifier = c
	return s
}

// -- Records --

func (s *Service) CreateRecord(ctx context.Context, r *Record) error {
	profile, err := s.children.ChildProfile(ctx, r.ChildID)
	if err != nil {
		return err
	}
	if err := validateRecord(r, profile); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.BMI = ComputeBMI(r.HeightCm, r.WeightKg)
	return s.records.Create(ctx, r)
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) UpdateRecord(ctx context.Context, r *Record) error {
	existing, err := s.records.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	profile, err := s.children.ChildProfile(ctx, existing.ChildID)
	if err != nil {
		return err
	}
	r.ChildID = existing.ChildID
	if err := validateRecord(r, profile); err != nil {
		return err
	}
	r.BMI = ComputeBMI(r.HeightCm, r.WeightKg)
	return s.records.Update(ctx, r)
}

func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, childID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	if _, err := s.children.ChildProfile(ctx, childID); err != nil {
		return nil, 0, err
	}
	return s.records.ListByChild(ctx, childID, limit, offset)
}

func validateRecord(r *Record, profile *ChildProfile) error {
	if r.MeasuredAt.IsZero() {
		return fmt.Errorf("measured_at is required")
	}
	if r.MeasuredAt.After(time.Now()) {
		return fmt.Errorf("measured_at must not be in the future")
	}
	if r.MeasuredAt.Before(profile.BirthDate) {
		return fmt.Errorf("measured_at must not precede the child's birth date")
	}
	if r.HeightCm <= 0 || r.HeightCm > 250 {
		return fmt.Errorf("height_cm must be in (0, 250]")
	}
	if r.WeightKg <= 0 || r.WeightKg > 300 {
		return fmt.Errorf("weight_kg must be in (0, 300]")
	}
	if r.HeadCircumferenceCm < 0 || r.HeadCircumferenceCm > 100 {
		return fmt.Errorf("head_circumference_cm must be in [0, 100]")
	}
	return nil
}

// -- Standards --

// Standard resolves the reference SD ladder at an exact fractional age.
func (s *Service) Standard(ctx context.Context, gender string, ageMonths float64, m MeasurementType) (*StandardRow, error) {
	if !ValidGender(gender) {
		return nil, fmt.Errorf("invalid gender: %s", gender)
	}
	if !ValidMeasurement(m) {
		return nil, fmt.Errorf("invalid measurement type: %s", m)
	}
	return InterpolatedStandard(ctx, s.standards, gender, ageMonths, m)
}

// -- Assessment --

// Assess evaluates the child's latest record against the reference
// standards. Any missing standard row aborts the whole assessment; there is
// no partial output.
func (s *Service) Assess(ctx context.Context, childID uuid.UUID) (*Assessment, error) {
	latest, err := s.records.LatestByChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	return s.AssessRecord(ctx, latest)
}

// AssessRecord evaluates one specific record plus up to six months of
// preceding history.
func (s *Service) AssessRecord(ctx context.Context, r *Record) (*Assessment, error) {
	profile, err := s.children.ChildProfile(ctx, r.ChildID)
	if err != nil {
		return nil, err
	}
	age := AgeInMonths(profile.BirthDate, r.MeasuredAt)

	results := make([]MeasurementResult, 0, len(AllMeasurements))
	for _, m := range AllMeasurements {
		std, err := InterpolatedStandard(ctx, s.standards, profile.Gender, age, m)
		if err != nil {
			return nil, err
		}
		z := ZScore(r.Value(m), std.Median, std.SD1Pos)
		results = append(results, MeasurementResult{
			Measurement: m,
			Value:       r.Value(m),
			ZScore:      z,
			Status:      s.classifier.Classify(m, z),
		})
	}

	history, err := s.records.ListWindow(ctx, r.ChildID, r.MeasuredAt.Add(-historyWindow), r.MeasuredAt)
	if err != nil {
		return nil, err
	}
	trend := s.trend.Analyze(history)

	return &Assessment{
		ChildID:         r.ChildID,
		RecordID:        r.ID,
		AgeMonths:       age,
		Results:         results,
		Trend:           trend,
		Recommendations: Recommendations(results, trend),
	}, nil
}
