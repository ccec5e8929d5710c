package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type ParticipationItem struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	AreaID          string     `json:"areaId"`
	EnteredAt       time.Time  `json:"enteredAt"`
	ExitedAt        *time.Time `json:"exitedAt,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`
}

type ExitResponse struct {
	AreaID          string `json:"areaId"`
	DurationSeconds int64  `json:"durationSeconds"`
}

type StatusResponse struct {
	Items []ParticipationItem `json:"items"`
}

// StatisticsResponse: openParticipations — точный COUNT открытых записей
// журнала, обязан совпадать с currentParticipants.
type StatisticsResponse struct {
	AreaID              string    `json:"areaId"`
	CurrentParticipants int64     `json:"currentParticipants"`
	OpenParticipations  int64     `json:"openParticipations"`
	TotalVisits         int64     `json:"totalVisits"`
	AverageStaySeconds  float64   `json:"averageStayTimeSeconds"`
	LastActivity        time.Time `json:"lastActivity"`
}

type ParticipantItem struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	EnteredAt   time.Time `json:"enteredAt"`
}

type ParticipantsResponse struct {
	Items []ParticipantItem `json:"items"`
}

type HistoryResponse struct {
	Items      []ParticipationItem `json:"items"`
	NextCursor string              `json:"nextCursor,omitempty"`
}
