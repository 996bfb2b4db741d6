package domain

import "errors"

// Event-handling errors. All of them are local to the offending event: the
// handler logs, drops the event and keeps serving other connections.
var (
	ErrDuplicateJoin      = errors.New("connection already joined")
	ErrRoomNotFound       = errors.New("room not found")
	ErrUnregisteredSender = errors.New("sender not registered")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrPayloadTooLarge    = errors.New("payload too large")
)
