package protocol

import (
	"context"
	"fmt"
	"sync"
)

// MaskSender delivers a masking value to a peer holder. Implementations
// block until the peer acknowledges the delivery.
type MaskSender interface {
	SendMask(ctx context.Context, peer string, mask Value) error
}

// Holder owns one private value and its running masked counterpart. The
// original value is immutable after creation; the masked value starts
// equal to it and mutates only through AddMask and RunInteraction.
//
// Each holder carries its own mutex so that concurrent inbound mask
// deliveries serialize against this holder alone, never against other
// holders in the same process.
type Holder struct {
	identity      string
	originalValue Value
	masks         MaskSource

	mu          sync.Mutex
	maskedValue Value
}

// NewHolder creates a holder with masked value initialized to value.
// Masks are drawn from crypto/rand unless SetMaskSource overrides it.
func NewHolder(identity string, value Value) *Holder {
	return &Holder{
		identity:      identity,
		originalValue: value,
		maskedValue:   value,
		masks:         CryptoRandSource{},
	}
}

// SetMaskSource replaces the holder's mask source. Call before any
// interaction runs; swapping mid-run is not supported.
func (h *Holder) SetMaskSource(src MaskSource) {
	h.masks = src
}

// Identity returns the holder's endpoint identity.
func (h *Holder) Identity() string {
	return h.identity
}

// OriginalValue returns the private value the holder was created with.
func (h *Holder) OriginalValue() Value {
	return h.originalValue
}

// AddMask applies an inbound mask: maskedValue += mask, wrapping. Each
// mask a peer sends must be applied exactly once; the transport is
// responsible for not replaying deliveries.
func (h *Holder) AddMask(mask Value) {
	h.mu.Lock()
	h.maskedValue += mask
	h.mu.Unlock()
}

// MaskedValue returns the current masked value. Side-effect free:
// repeated reads without intervening mutation return the same value.
func (h *Holder) MaskedValue() Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maskedValue
}

// RunInteraction performs the masking phase against peers. For each peer
// a fresh mask is drawn, subtracted from this holder's masked value, and
// delivered to the peer, which adds it. Peer order does not affect the
// final sum.
//
// The local subtraction and the remote addition are a matched pair. A
// failed delivery leaves this holder's subtraction applied without the
// peer's addition; the run is then inconsistent and the error is
// surfaced for the caller to treat as fatal.
func (h *Holder) RunInteraction(ctx context.Context, peers []string, send MaskSender) error {
	for _, peer := range peers {
		if peer == h.identity {
			return fmt.Errorf("peer %s: %w", peer, ErrSelfMasking)
		}
	}

	for _, peer := range peers {
		mask, err := h.masks.Next()
		if err != nil {
			return err
		}

		h.mu.Lock()
		h.maskedValue -= mask
		h.mu.Unlock()

		if err := send.SendMask(ctx, peer, mask); err != nil {
			return fmt.Errorf("deliver mask to %s: %w", peer, err)
		}
	}
	return nil
}
