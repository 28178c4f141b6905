package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/shenikar/speedbump_logger/internal/service"
)

type SpeedBumpRepository struct {
	db *pgxpool.Pool
}

func NewSpeedBumpRepository(db *pgxpool.Pool) service.BumpStore {
	return &SpeedBumpRepository{
		db: db,
	}
}

// ListRecent возвращает последние события, новые первыми
func (r *SpeedBumpRepository) ListRecent(ctx context.Context, limit int) ([]*models.SpeedBump, error) {
	query := `
		SELECT id, latitude, longitude, speed, detected_at, created_at, accuracy
		FROM speed_bumps
		ORDER BY detected_at DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list speed bumps: %w", err)
	}
	defer rows.Close()

	bumps := make([]*models.SpeedBump, 0, limit)
	for rows.Next() {
		bump := &models.SpeedBump{}
		if err := rows.Scan(
			&bump.ID,
			&bump.Latitude,
			&bump.Longitude,
			&bump.Speed,
			&bump.DetectedAt,
			&bump.CreatedAt,
			&bump.Accuracy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan speed bump: %w", err)
		}
		bumps = append(bumps, bump)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate speed bumps: %w", err)
	}
	return bumps, nil
}

// Create сохраняет детекцию. ID и created_at назначает база.
func (r *SpeedBumpRepository) Create(ctx context.Context, d *models.Detection) (*models.SpeedBump, error) {
	query := `
		INSERT INTO speed_bumps (latitude, longitude, speed, detected_at, accuracy)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, latitude, longitude, speed, detected_at, created_at, accuracy;
	`
	bump := &models.SpeedBump{}
	err := r.db.QueryRow(ctx, query,
		d.Latitude,
		d.Longitude,
		d.SpeedKmh,
		d.DetectedAt,
		d.Accuracy,
	).Scan(
		&bump.ID,
		&bump.Latitude,
		&bump.Longitude,
		&bump.Speed,
		&bump.DetectedAt,
		&bump.CreatedAt,
		&bump.Accuracy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create speed bump: %w", err)
	}
	return bump, nil
}

// DeleteDetectedSince удаляет события с detected_at >= since
func (r *SpeedBumpRepository) DeleteDetectedSince(ctx context.Context, since time.Time) (int64, error) {
	query := `DELETE FROM speed_bumps WHERE detected_at >= $1;`
	cmdTag, err := r.db.Exec(ctx, query, since)
	if err != nil {
		return 0, fmt.Errorf("failed to delete speed bumps: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
