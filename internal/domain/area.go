package domain

import "time"

// Point — планарная координата; Longitude как x, Latitude как y.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Area is a closed polygon: the last vertex implicitly connects to the first.
// Immutable once referenced by open participation; edits are full replacements.
type Area struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	OwnerID   string    `db:"owner_id"`
	IsPublic  bool      `db:"is_public"`
	Vertices  []Point   `db:"vertices"`
	CreatedAt time.Time `db:"created_at"`
}

// AreaMembership grants eligibility to be tracked inside the area.
type AreaMembership struct {
	AreaID   string  `db:"area_id"`
	UserID   string  `db:"user_id"`
	AreaName string  `db:"area_name"`
	Polygon  []Point `db:"polygon"`
}
