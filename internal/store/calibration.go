package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/calibration"
)

// Calibration is a stored calibration run.
type Calibration struct {
	ID        string            `json:"id"`
	Mode      string            `json:"mode"`
	Model     calibration.Model `json:"model"`
	Points    []PointRecord     `json:"points"`
	Warnings  []string          `json:"warnings"`
	CreatedAt time.Time         `json:"created_at"`
}

// PointRecord summarizes one committed calibration point.
type PointRecord struct {
	Index   int     `json:"index"`
	TargetX int     `json:"target_x"`
	TargetY int     `json:"target_y"`
	Samples int     `json:"samples"`
	MeanX   float64 `json:"mean_x"`
	MeanY   float64 `json:"mean_y"`
}

// NewCalibration builds a record for a finished session. The ID is left for
// Create to assign.
func NewCalibration(mode string, res calibration.Result) *Calibration {
	c := &Calibration{Mode: mode, Model: res.Model}
	for i, p := range res.Points {
		rec := PointRecord{Index: i, TargetX: p.Target.X, TargetY: p.Target.Y, Samples: len(p.Samples)}
		if len(p.Samples) > 0 {
			xs := make([]float64, len(p.Samples))
			ys := make([]float64, len(p.Samples))
			for j, s := range p.Samples {
				xs[j], ys[j] = s.X, s.Y
			}
			rec.MeanX = stat.Mean(xs, nil)
			rec.MeanY = stat.Mean(ys, nil)
		}
		c.Points = append(c.Points, rec)
	}
	for _, w := range res.Warnings {
		c.Warnings = append(c.Warnings, w.Error())
	}
	return c
}

// CalibrationRepository stores calibration runs with their points.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Create inserts a calibration and its points in one transaction. An empty
// ID is filled with a new UUID.
func (r *CalibrationRepository) Create(c *Calibration) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()

	warnings := c.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m := c.Model
	_, err = tx.Exec(
		`INSERT INTO calibrations (id, mode, source, valid, scale_x, scale_y, offset_x, offset_y,
		 width, height, points, warnings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Mode, string(m.Source), m.Valid, m.ScaleX, m.ScaleY, m.OffsetX, m.OffsetY,
		m.Width, m.Height, m.Points, string(warningsJSON), c.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, p := range c.Points {
		_, err := tx.Exec(
			`INSERT INTO calibration_points (calibration_id, point_index, target_x, target_y, samples, mean_x, mean_y)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, p.Index, p.TargetX, p.TargetY, p.Samples, p.MeanX, p.MeanY,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const selectCalibration = `SELECT id, mode, source, valid, scale_x, scale_y, offset_x, offset_y,
	width, height, points, warnings, created_at FROM calibrations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalibration(row rowScanner) (*Calibration, error) {
	c := &Calibration{}
	var source, warnings string
	m := &c.Model

	err := row.Scan(&c.ID, &c.Mode, &source, &m.Valid, &m.ScaleX, &m.ScaleY, &m.OffsetX, &m.OffsetY,
		&m.Width, &m.Height, &m.Points, &warnings, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.Source = calibration.Source(source)
	if err := json.Unmarshal([]byte(warnings), &c.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	return c, nil
}

// GetByID retrieves a calibration with its points.
func (r *CalibrationRepository) GetByID(id string) (*Calibration, error) {
	c, err := scanCalibration(r.db.QueryRow(selectCalibration+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadPoints(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Latest returns the newest valid calibration for a mode.
func (r *CalibrationRepository) Latest(mode string) (*Calibration, error) {
	c, err := scanCalibration(r.db.QueryRow(
		selectCalibration+` WHERE mode = ? AND valid = 1 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		mode,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadPoints(c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns up to limit calibrations, newest first, without points.
// A non-positive limit returns all of them.
func (r *CalibrationRepository) List(limit int) ([]*Calibration, error) {
	query := selectCalibration + ` ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calibrations []*Calibration
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, err
		}
		calibrations = append(calibrations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return calibrations, nil
}

// Delete removes a calibration and its points.
func (r *CalibrationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM calibrations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

func (r *CalibrationRepository) loadPoints(c *Calibration) error {
	rows, err := r.db.Query(
		`SELECT point_index, target_x, target_y, samples, mean_x, mean_y
		 FROM calibration_points WHERE calibration_id = ? ORDER BY point_index`,
		c.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PointRecord
		if err := rows.Scan(&p.Index, &p.TargetX, &p.TargetY, &p.Samples, &p.MeanX, &p.MeanY); err != nil {
			return err
		}
		c.Points = append(c.Points, p)
	}
	return rows.Err()
}
