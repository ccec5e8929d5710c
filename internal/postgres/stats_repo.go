package postgres

import (
	"context"
	"errors"

	"github.com/zonegrid/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository — инкрементальные счётчики по зонам. Строка создаётся
// лениво через EnsureExists; обновляет её только агрегатор.
type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) EnsureExists(ctx context.Context, areaID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO area_statistics (area_id)
		VALUES ($1)
		ON CONFLICT DO NOTHING
	`, areaID)
	return err
}

func (r *StatsRepository) OnEnter(ctx context.Context, areaID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE area_statistics
		SET current_participants = current_participants + 1,
		    total_visits = total_visits + 1,
		    last_activity = now()
		WHERE area_id = $1
	`, areaID)
	return err
}

// OnExit декрементирует счётчик с полом на нуле (GREATEST) и, если выход
// закрыл запись журнала, пересчитывает среднее время пребывания как
// арифметическое среднее по всем закрытым записям зоны. Полный пересчёт на
// каждый выход — известная O(n) цена, зато среднее всегда точное.
func (r *StatsRepository) OnExit(ctx context.Context, areaID string, closedEntry bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE area_statistics
		SET current_participants = GREATEST(current_participants - 1, 0),
		    last_activity = now()
		WHERE area_id = $1
	`, areaID)
	if err != nil {
		return err
	}
	if !closedEntry {
		return nil
	}

	_, err = r.db.Exec(ctx, `
		UPDATE area_statistics
		SET average_stay_time_seconds = COALESCE((
			SELECT AVG(duration_seconds)::float8
			FROM participation_log
			WHERE area_id = $1 AND exited_at IS NOT NULL
		), 0)
		WHERE area_id = $1
	`, areaID)
	return err
}

func (r *StatsRepository) Get(ctx context.Context, areaID string) (*domain.AreaStatistics, error) {
	var s domain.AreaStatistics
	query := `
		SELECT area_id, current_participants, total_visits,
		       average_stay_time_seconds, last_activity
		FROM area_statistics WHERE area_id=$1`
	err := r.db.QueryRow(ctx, query, areaID).
		Scan(&s.AreaID, &s.CurrentParticipants, &s.TotalVisits,
			&s.AverageStaySeconds, &s.LastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAreaNotFound
		}
		return nil, err
	}
	return &s, nil
}
