package room

import "errors"

var (
	// ErrRoomNotFound is returned for any operation against an unknown game code
	ErrRoomNotFound = errors.New("room not found")
	// ErrAlreadyExists is returned when creating a room whose code is taken
	ErrAlreadyExists = errors.New("room already exists")
	ErrRoomFull      = errors.New("room is full")
	ErrGameFinished  = errors.New("game already finished")
	ErrGameStarted   = errors.New("game already started")
	// ErrInvalidTransition is returned when a status change is not allowed from the current status
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidCode       = errors.New("invalid game code")
)

// RejectReason explains why a submission was not recorded. Rejections are
// normal outcomes, not faults.
type RejectReason string

const (
	Accepted            RejectReason = ""
	RejectStaleQuestion RejectReason = "stale_question"
	RejectEliminated    RejectReason = "eliminated"
	RejectDuplicate     RejectReason = "duplicate"
	RejectNotMember     RejectReason = "not_member"
	RejectNotAccepting  RejectReason = "not_accepting"
	RejectInvalidOption RejectReason = "invalid_option"
)
