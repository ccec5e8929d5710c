package domain

import "time"

// AreaStatistics is maintained incrementally by the aggregator; created lazily
// on first reference. CurrentParticipants must agree with the COUNT of open
// participation rows for the area.
type AreaStatistics struct {
	AreaID              string    `db:"area_id"`
	CurrentParticipants int64     `db:"current_participants"`
	TotalVisits         int64     `db:"total_visits"`
	AverageStaySeconds  float64   `db:"average_stay_time_seconds"`
	LastActivity        time.Time `db:"last_activity"`
}
