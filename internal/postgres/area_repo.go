package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zonegrid/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AreaRepository struct {
	db *pgxpool.Pool
}

func NewAreaRepository(db *pgxpool.Pool) *AreaRepository {
	return &AreaRepository{db: db}
}

func (r *AreaRepository) Get(ctx context.Context, id string) (*domain.Area, error) {
	var (
		a   domain.Area
		raw []byte
	)
	query := `SELECT id, name, owner_id, is_public, vertices, created_at FROM areas WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&a.ID, &a.Name, &a.OwnerID, &a.IsPublic, &raw, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAreaNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &a.Vertices); err != nil {
		return nil, fmt.Errorf("area %s: decode vertices: %w", id, err)
	}
	if len(a.Vertices) < 3 {
		return nil, fmt.Errorf("area %s: %w", id, domain.ErrInvalidPolygon)
	}
	return &a, nil
}

// ListMemberships возвращает зоны пользователя вместе с полигонами —
// ровно то, что нужно детектору на каждый location sample.
func (r *AreaRepository) ListMemberships(ctx context.Context, userID string) ([]domain.AreaMembership, error) {
	const q = `
		SELECT m.area_id, m.user_id, a.name, a.vertices
		FROM area_members m
		JOIN areas a ON a.id = m.area_id
		WHERE m.user_id = $1
		ORDER BY a.name`

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.AreaMembership
	for rows.Next() {
		var (
			m   domain.AreaMembership
			raw []byte
		)
		if err := rows.Scan(&m.AreaID, &m.UserID, &m.AreaName, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &m.Polygon); err != nil {
			return nil, fmt.Errorf("area %s: decode vertices: %w", m.AreaID, err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *AreaRepository) IsMember(ctx context.Context, areaID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM area_members WHERE area_id=$1 AND user_id=$2)`,
		areaID, userID).Scan(&exists)
	return exists, err
}
