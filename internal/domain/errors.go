package domain

import "errors"

var (
	// ErrUnknownRoom is returned for a room name outside the enumerated set.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrConnectionNotFound means the target connection is not live.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrFetch covers network failures, timeouts, bad status codes and malformed
	// top-level response shapes.
	ErrFetch = errors.New("fetch failed")
	// ErrFormat marks a single upstream item that cannot be normalized.
	ErrFormat = errors.New("malformed item")
	// ErrDuplicate is returned by stores when an insert hits an existing key.
	ErrDuplicate = errors.New("duplicate item")
	// ErrUnknownJob is returned when triggering a job id that is not scheduled.
	ErrUnknownJob = errors.New("unknown job")
)
