package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, clients and other
// infrastructure layers return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: a conditional write lost against a concurrent writer
//   - ErrExpired: token/ticket has expired
//   - ErrAlreadyUsed: a one-shot key (such as a synced queue item) was already consumed
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: remote service or resource unreachable at the network layer
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
