package protocol

import "errors"

var (
	// ErrDuplicateEndpoint reports a roster listing the same holder twice.
	ErrDuplicateEndpoint = errors.New("roster contains a duplicate endpoint")

	// ErrSelfMasking reports a peer list containing the holder's own
	// endpoint. A holder must never mask against itself.
	ErrSelfMasking = errors.New("peer list contains the holder's own endpoint")

	// ErrRosterNotInitialized reports an aggregate query against a
	// coordinator whose roster was never initialized.
	ErrRosterNotInitialized = errors.New("roster has not been initialized")

	// ErrPeerUnreachable reports a mask delivery, peer-list delivery or
	// value reveal that could not reach its destination. The enclosing
	// run is considered failed; there is no retry.
	ErrPeerUnreachable = errors.New("peer unreachable")
)
