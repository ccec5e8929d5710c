package postgres

import (
	"context"
	"time"

	"github.com/zonegrid/presence-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SampleRepository struct {
	db *pgxpool.Pool
}

func NewSampleRepository(db *pgxpool.Pool) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Insert(ctx context.Context, s *domain.LocationSample) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO location_samples (user_id, area_id, latitude, longitude, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.UserID, s.AreaID, s.Latitude, s.Longitude, s.RecordedAt)
	return row.Scan(&s.ID)
}

// DeleteForUserArea убирает сэмплы покинутой зоны.
func (r *SampleRepository) DeleteForUserArea(ctx context.Context, userID, areaID string) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM location_samples WHERE user_id=$1 AND area_id=$2`, userID, areaID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// DeleteOlderThan — для реапера; журнал участий этим путём никогда не чистится.
func (r *SampleRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM location_samples WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
