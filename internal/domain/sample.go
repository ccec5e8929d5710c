package domain

import "time"

// LocationSample — raw sample as reported by a client. Kept only for the
// retention window; the reaper deletes expired rows.
type LocationSample struct {
	ID         int64     `db:"id"`
	UserID     string    `db:"user_id"`
	AreaID     string    `db:"area_id"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	RecordedAt time.Time `db:"recorded_at"`
}
