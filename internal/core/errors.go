// Package core defines sentinel errors.
package core

import "errors"

var (
	// Frame classification errors, reported as Outcome.Reason.
	ErrPacketTooShort   = errors.New("arpreflect: packet too short")
	ErrUnsupportedProto = errors.New("arpreflect: unsupported protocol")
	ErrFieldTruncated   = errors.New("arpreflect: address field truncated")

	// Event sink errors
	ErrSinkFull   = errors.New("arpreflect: event sink full")
	ErrSinkClosed = errors.New("arpreflect: event sink closed")

	// Event codec errors
	ErrEventSize = errors.New("arpreflect: malformed event record")

	// Source errors
	ErrSourceNotFound = errors.New("arpreflect: source type not found")

	// Configuration errors
	ErrConfigInvalid = errors.New("arpreflect: invalid configuration")
)
