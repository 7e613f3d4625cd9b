package service

import "errors"

// Caller-visible scheduler errors. Configuration errors are reported
// synchronously at assignment time and never retried.
var (
	ErrNoActiveSlots      = errors.New("no active posting slots configured for this account")
	ErrNoOpenSlot         = errors.New("no open slot within the lookahead window")
	ErrAccountNotFound    = errors.New("social account not found")
	ErrAccountInactive    = errors.New("social account is disconnected")
	ErrVideoNotReady      = errors.New("video has not finished processing")
	ErrVideoAlreadyQueued = errors.New("video is already queued")
	ErrPostNotFound       = errors.New("post not found")
	ErrPostNotEditable    = errors.New("post can no longer be edited")
	ErrPostNotCancellable = errors.New("post is already in a terminal state")
	ErrSlotOccupied       = errors.New("another post already occupies that instant")

	// ErrTokenExpired marks an access token past its expiry; the publish path
	// refreshes inline and retries once.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenInvalid marks a refresh token the platform rejected outright.
	// Not transient: the account must be reconnected.
	ErrTokenInvalid = errors.New("refresh token rejected by platform")
)
