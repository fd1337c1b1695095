package chat

import "errors"

// Operation outcomes surfaced to callers. ErrNotFound deliberately covers
// both an absent resource and a requester who lacks the required
// relationship, so a non-owner cannot distinguish "missing" from
// "forbidden".
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)
