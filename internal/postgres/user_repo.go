package postgres

import (
	"context"
	"errors"

	"github.com/zonegrid/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository читает профиль и граф друзей. Сами CRUD-операции живут в
// соседнем user-service; ядру нужны display_name, device_token и current_area_id.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	query := `SELECT id, display_name, device_token, current_area_id FROM users WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.DisplayName, &p.DeviceToken, &p.CurrentAreaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *UserRepository) SetCurrentArea(ctx context.Context, userID, areaID string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET current_area_id=$2 WHERE id=$1`, userID, areaID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ClearCurrentArea сбрасывает current_area_id только если он всё ещё равен
// areaID — опоздавший leave не должен затирать более свежий join.
func (r *UserRepository) ClearCurrentArea(ctx context.Context, userID, areaID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET current_area_id=NULL WHERE id=$1 AND current_area_id=$2`,
		userID, areaID)
	return err
}

func (r *UserRepository) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	const q = `
		SELECT u.id, u.display_name, u.device_token
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1
		ORDER BY u.display_name`

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Friend
	for rows.Next() {
		var f domain.Friend
		if err := rows.Scan(&f.ID, &f.Name, &f.DeviceToken); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}
