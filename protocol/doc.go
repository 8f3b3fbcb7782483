// Package protocol implements the pairwise additive-masking aggregation
// protocol.
//
// A set of mutually distrusting value holders each own a private 32-bit
// value. Every holder exchanges a fresh random mask with every other
// holder: the initiator subtracts the mask from its own running masked
// value and instructs the peer to add the same mask to its own. Because
// each mask is added at exactly one holder and subtracted at exactly one
// other, the masks cancel in the sum and the coordinator learns the
// aggregate without learning any individual value.
//
// All arithmetic wraps modulo 2^32. Masks span the full 32-bit domain, so
// intermediate values routinely overflow; wraparound is required for
// correctness, not an implementation shortcut.
//
// The package is transport-agnostic. Holders deliver masks through a
// MaskSender and coordinators deliver peer lists and collect reveals
// through PeerListSender and ValueRevealer; the services package provides
// the HTTP realization of all three.
//
// The threat model is passive (honest-but-curious) participants only.
// There is no dropout tolerance: a mask subtracted locally whose delivery
// fails leaves the run inconsistent, and the caller is expected to treat
// the run as failed.
package protocol
