package domain

import "errors"

var (
	ErrAreaNotFound         = errors.New("area not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotMember            = errors.New("user is not a member of the area")
	ErrAlreadyParticipating = errors.New("open participation already exists")
	ErrNoOpenParticipation  = errors.New("no open participation")
	ErrInvalidCoordinates   = errors.New("invalid coordinates")
	ErrInvalidPolygon       = errors.New("polygon needs at least 3 vertices")
)
