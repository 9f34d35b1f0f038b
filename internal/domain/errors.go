package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotReady           = errors.New("connection is not open")
	ErrSuperseded         = errors.New("connection attempt superseded by a newer room selection")
	ErrStaleSession       = errors.New("room selection changed since the operation started")
	ErrNoActiveRoom       = errors.New("no active room")
	ErrNoAttachment       = errors.New("no attachment selected")
	ErrAttachmentTooLarge = errors.New("attachment exceeds the upload limit")
)

// ConnectError reports a live connection that could not be established or
// dropped unexpectedly.
type ConnectError struct {
	RoomID   string
	ClientID string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to room %s as %s: %v", e.RoomID, e.ClientID, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// UploadError reports a failed call to the upload endpoint. Status is zero
// when no response was received.
type UploadError struct {
	Status int
	Body   string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
