package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/zonegrid/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pg unique_violation
const codeUniqueViolation = "23505"

// ParticipationRepository — журнал входов/выходов. Единственность открытой
// записи на (user_id, area_id) держит частичный уникальный индекс
// uniq_open_participation, а не проверка в коде: два конкурентных Open не
// пробьют инвариант, второй получит ErrAlreadyParticipating.
type ParticipationRepository struct {
	db *pgxpool.Pool
}

func NewParticipationRepository(db *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

func (r *ParticipationRepository) Open(ctx context.Context, userID, areaID string) (*domain.ParticipationLog, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO participation_log (user_id, area_id, entered_at)
		VALUES ($1, $2, now())
		RETURNING id, entered_at
	`, userID, areaID)

	p := domain.ParticipationLog{UserID: userID, AreaID: areaID}
	if err := row.Scan(&p.ID, &p.EnteredAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
			return nil, domain.ErrAlreadyParticipating
		}
		return nil, err
	}
	return &p, nil
}

// Close закрывает открытую запись; duration_seconds считается в SQL,
// округление вниз до целых секунд.
func (r *ParticipationRepository) Close(ctx context.Context, userID, areaID string, exitedAt time.Time) (int64, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE participation_log
		SET exited_at = $3,
		    duration_seconds = FLOOR(EXTRACT(EPOCH FROM ($3 - entered_at)))::bigint
		WHERE user_id = $1 AND area_id = $2 AND exited_at IS NULL
		RETURNING duration_seconds
	`, userID, areaID, exitedAt)

	var duration int64
	if err := row.Scan(&duration); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNoOpenParticipation
		}
		return 0, err
	}
	return duration, nil
}

func (r *ParticipationRepository) ListOpenByUser(ctx context.Context, userID string) ([]domain.ParticipationLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, area_id, entered_at, exited_at, duration_seconds
		FROM participation_log
		WHERE user_id=$1 AND exited_at IS NULL
		ORDER BY entered_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanParticipations(rows)
}

func (r *ParticipationRepository) CountOpenByArea(ctx context.Context, areaID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM participation_log WHERE area_id=$1 AND exited_at IS NULL`,
		areaID).Scan(&count)
	return count, err
}

func (r *ParticipationRepository) ListOpenByArea(ctx context.Context, areaID string) ([]domain.AreaParticipant, error) {
	const q = `
		SELECT p.user_id, u.display_name, p.entered_at
		FROM participation_log p
		JOIN users u ON u.id = p.user_id
		WHERE p.area_id = $1 AND p.exited_at IS NULL
		ORDER BY p.entered_at`

	rows, err := r.db.Query(ctx, q, areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AreaParticipant, 0, 16)
	for rows.Next() {
		var row domain.AreaParticipant
		if err := rows.Scan(&row.UserID, &row.DisplayName, &row.EnteredAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *ParticipationRepository) ListByArea(ctx context.Context, areaID, cursorStr string, limit int) ([]domain.ParticipationLog, string, error) {
	return r.list(ctx, `area_id`, areaID, cursorStr, limit)
}

func (r *ParticipationRepository) ListByUser(ctx context.Context, userID, cursorStr string, limit int) ([]domain.ParticipationLog, string, error) {
	return r.list(ctx, `user_id`, userID, cursorStr, limit)
}

func (r *ParticipationRepository) list(ctx context.Context, column, value, cursorStr string, limit int) ([]domain.ParticipationLog, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, user_id, area_id, entered_at, exited_at, duration_seconds
		FROM participation_log
		WHERE ` + column + ` = $1
		  AND ($2::timestamptz IS NULL OR entered_at < $2
		       OR (entered_at = $2 AND id < $3))
		ORDER BY entered_at DESC, id DESC
		LIMIT $4`

	var enteredAt any
	var id any
	if cur != nil {
		enteredAt = cur.EnteredAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, value, enteredAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	list, err := scanParticipations(rows)
	if err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(list) == limit {
		last := list[len(list)-1]
		nextCursor, _ = EncodeCursor(Cursor{EnteredAt: last.EnteredAt, ID: last.ID})
	}
	return list, nextCursor, nil
}

func scanParticipations(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]domain.ParticipationLog, error) {
	var list []domain.ParticipationLog
	for rows.Next() {
		var p domain.ParticipationLog
		if err := rows.Scan(&p.ID, &p.UserID, &p.AreaID, &p.EnteredAt, &p.ExitedAt, &p.DurationSeconds); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
