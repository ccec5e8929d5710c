package ws

// Входящие события
const (
	TypeAuthenticate   = "authenticate"
	TypeJoinArea       = "joinArea"
	TypeLeaveArea      = "leaveArea"
	TypeLocationUpdate = "location_update"
)

// Исходящие события
const (
	TypeAuthenticated   = "authenticated"
	TypeAreaJoined      = "areaJoined"
	TypeAreaLeft        = "areaLeft"
	TypeLocation        = "location"
	TypeFriendAreaEvent = "friend_area_event"
	TypeFriendStatus    = "friendStatusUpdate"
	TypeError           = "error"
)

// Действия внутри события location
const (
	ActionFriendLocation = "friend_location_update"
	ActionUserJoinedArea = "user_joined_area"
	ActionUserLeftArea   = "user_left_area"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type AreaPayload struct {
	AreaID string `json:"areaId"`
}

type LocationUpdatePayload struct {
	UserID    string  `json:"userId"`
	AreaID    string  `json:"areaId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

type AuthenticatedPayload struct {
	UserID        string `json:"userId"`
	CurrentAreaID string `json:"currentAreaId,omitempty"`
}

type AreaAckPayload struct {
	AreaID  string `json:"areaId"`
	Success bool   `json:"success"`
}

// LocationData — payload события location; координаты есть только у
// friend_location_update.
type LocationData struct {
	Action    string   `json:"action"`
	UserID    string   `json:"userId"`
	UserName  string   `json:"userName"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	AreaID    string   `json:"areaId"`
	Timestamp int64    `json:"timestamp"`
}

type FriendAreaEventPayload struct {
	FriendName string `json:"friendName"`
	Event      string `json:"event"` // entered | exited
	AreaName   string `json:"areaName"`
	Timestamp  int64  `json:"timestamp"`
}

type FriendStatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
	LastSeen int64  `json:"lastSeen"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
