package store

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/motion"
)

func testResult(valid bool) calibration.Result {
	var res calibration.Result
	targets := calibration.Targets(motion.Screen{Width: 1920, Height: 1080}, 50)
	for i, tg := range targets {
		res.Points[i] = calibration.Point{
			Target: tg,
			Samples: []landmark.Point{
				{X: 0.2 + 0.1*float64(i), Y: 0.3},
				{X: 0.4 + 0.1*float64(i), Y: 0.5},
			},
		}
	}
	res.Model = calibration.Model{
		ScaleX: 0.0002, ScaleY: 0.0003, OffsetX: 0.1, OffsetY: 0.2,
		Width: 1920, Height: 1080, Valid: valid, Source: calibration.SourceSamples, Points: 5,
	}
	res.Warnings = []error{calibration.ErrUndersampled}
	return res
}

func TestNewCalibration(t *testing.T) {
	c := NewCalibration("hand", testResult(true))

	if len(c.Points) != calibration.NumPoints {
		t.Fatalf("expected %d points, got %d", calibration.NumPoints, len(c.Points))
	}
	first := c.Points[0]
	if first.TargetX != 50 || first.TargetY != 50 || first.Samples != 2 {
		t.Errorf("first point = %+v, want target (50,50) with 2 samples", first)
	}
	if first.MeanX < 0.2999 || first.MeanX > 0.3001 || first.MeanY < 0.3999 || first.MeanY > 0.4001 {
		t.Errorf("first point mean = (%f, %f), want (0.3, 0.4)", first.MeanX, first.MeanY)
	}
	if len(c.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", c.Warnings)
	}
}

func TestCalibrationRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	c := NewCalibration("hand", testResult(true))
	if err := repo.Create(c); err != nil {
		t.Fatalf("failed to create calibration: %v", err)
	}
	if c.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID(c.ID)
	if err != nil {
		t.Fatalf("failed to get calibration: %v", err)
	}

	opts := cmpopts.IgnoreFields(Calibration{}, "CreatedAt")
	if diff := cmp.Diff(c, got, opts, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("GetByID() mismatch (-want +got):\n%s", diff)
	}
}

func TestCalibrationRepository_KeepsID(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	c := NewCalibration("gaze", testResult(true))
	c.ID = "fixed-id"
	if err := repo.Create(c); err != nil {
		t.Fatalf("failed to create calibration: %v", err)
	}
	if _, err := repo.GetByID("fixed-id"); err != nil {
		t.Errorf("GetByID(fixed-id) error = %v", err)
	}
}

func TestCalibrationRepository_Latest(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	if _, err := repo.Latest("hand"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	older := NewCalibration("hand", testResult(true))
	newer := NewCalibration("hand", testResult(true))
	newer.Model.ScaleX = 0.0005
	invalid := NewCalibration("hand", testResult(false))
	gaze := NewCalibration("gaze", testResult(true))

	for _, c := range []*Calibration{older, newer, invalid, gaze} {
		if err := repo.Create(c); err != nil {
			t.Fatalf("failed to create calibration: %v", err)
		}
	}

	got, err := repo.Latest("hand")
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("Latest() = %s, want newest valid %s", got.ID, newer.ID)
	}
	if len(got.Points) != calibration.NumPoints {
		t.Errorf("Latest() should load points, got %d", len(got.Points))
	}

	got, err = repo.Latest("gaze")
	if err != nil || got.ID != gaze.ID {
		t.Errorf("Latest(gaze) = %v, %v; want %s", got, err, gaze.ID)
	}
}

func TestCalibrationRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	var ids []string
	for i := 0; i < 3; i++ {
		c := NewCalibration("hand", testResult(i != 1))
		if err := repo.Create(c); err != nil {
			t.Fatalf("failed to create calibration: %v", err)
		}
		ids = append(ids, c.ID)
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 calibrations, got %d", len(all))
	}
	if all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("List() should be newest first, got %s..%s", all[0].ID, all[2].ID)
	}
	if all[1].Model.Valid {
		t.Error("invalid calibration should be listed as invalid")
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 calibrations, got %d", len(limited))
	}
}

func TestCalibrationRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	c := NewCalibration("hand", testResult(true))
	if err := repo.Create(c); err != nil {
		t.Fatalf("failed to create calibration: %v", err)
	}

	if err := repo.Delete(c.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := repo.GetByID(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	var points int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM calibration_points WHERE calibration_id = ?`, c.ID).Scan(&points); err != nil {
		t.Fatalf("count points: %v", err)
	}
	if points != 0 {
		t.Errorf("points should cascade on delete, %d left", points)
	}

	if err := repo.Delete(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}
