package domain

import "time"

// ParticipationLog — durable record of one entry-to-exit span.
// At most one row per (UserID, AreaID) may have ExitedAt == nil; the storage
// layer enforces this with a partial unique index, not application logic.
type ParticipationLog struct {
	ID              string     `db:"id"`
	UserID          string     `db:"user_id"`
	AreaID          string     `db:"area_id"`
	EnteredAt       time.Time  `db:"entered_at"`
	ExitedAt        *time.Time `db:"exited_at"`
	DurationSeconds *int64     `db:"duration_seconds"`
}

// Open reports whether the span is still running.
func (p ParticipationLog) Open() bool { return p.ExitedAt == nil }

// AreaParticipant — read model: an open participation joined with the
// participant's display name.
type AreaParticipant struct {
	UserID      string    `db:"user_id"`
	DisplayName string    `db:"display_name"`
	EnteredAt   time.Time `db:"entered_at"`
}
