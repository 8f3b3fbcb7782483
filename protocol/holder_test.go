package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMask struct {
	peer string
	mask Value
}

// recordingSender captures deliveries and optionally fails for one peer.
type recordingSender struct {
	mu     sync.Mutex
	sent   []sentMask
	failOn string
}

func (r *recordingSender) SendMask(_ context.Context, peer string, mask Value) error {
	if peer == r.failOn {
		return ErrPeerUnreachable
	}
	r.mu.Lock()
	r.sent = append(r.sent, sentMask{peer: peer, mask: mask})
	r.mu.Unlock()
	return nil
}

// sequenceSource replays a fixed mask sequence.
type sequenceSource struct {
	masks []Value
	next  int
}

func (s *sequenceSource) Next() (Value, error) {
	if s.next >= len(s.masks) {
		return 0, errors.New("mask sequence exhausted")
	}
	m := s.masks[s.next]
	s.next++
	return m, nil
}

func TestNewHolder(t *testing.T) {
	h := NewHolder("http://localhost:3001", 7)
	assert.Equal(t, "http://localhost:3001", h.Identity())
	assert.Equal(t, Value(7), h.OriginalValue())
	assert.Equal(t, Value(7), h.MaskedValue(), "masked value starts equal to the original")
}

func TestAddMaskAccumulates(t *testing.T) {
	h := NewHolder("a", 10)
	h.AddMask(100)
	h.AddMask(200)
	assert.Equal(t, Value(310), h.MaskedValue())
}

func TestMaskedValueIdempotentRead(t *testing.T) {
	h := NewHolder("a", 10)
	h.AddMask(5)
	first := h.MaskedValue()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, h.MaskedValue())
	}
}

func TestRunInteractionSubtractsAndDelivers(t *testing.T) {
	h := NewHolder("a", 50)
	h.SetMaskSource(&sequenceSource{masks: []Value{100, 200}})

	sender := &recordingSender{}
	err := h.RunInteraction(context.Background(), []string{"b", "c"}, sender)
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, sentMask{peer: "b", mask: 100}, sender.sent[0])
	assert.Equal(t, sentMask{peer: "c", mask: 200}, sender.sent[1])

	// 50 - 100 - 200 mod 2^32
	assert.Equal(t, Value(50).Sub(100).Sub(200), h.MaskedValue())
}

func TestRunInteractionRejectsSelf(t *testing.T) {
	h := NewHolder("a", 50)
	sender := &recordingSender{}

	err := h.RunInteraction(context.Background(), []string{"b", "a"}, sender)
	require.ErrorIs(t, err, ErrSelfMasking)
	assert.Empty(t, sender.sent, "no delivery may happen for an invalid peer set")
	assert.Equal(t, Value(50), h.MaskedValue(), "state must be untouched")
}

func TestRunInteractionDeliveryFailure(t *testing.T) {
	h := NewHolder("a", 50)
	h.SetMaskSource(&sequenceSource{masks: []Value{100, 200}})

	sender := &recordingSender{failOn: "c"}
	err := h.RunInteraction(context.Background(), []string{"b", "c"}, sender)
	require.ErrorIs(t, err, ErrPeerUnreachable)

	// The failed pair's subtraction stands: the naive protocol has no
	// compensation, and the run is reported failed instead.
	assert.Equal(t, Value(50).Sub(100).Sub(200), h.MaskedValue())
	require.Len(t, sender.sent, 1)
}

func TestConcurrentMaskDeliveries(t *testing.T) {
	h := NewHolder("a", 0)

	const peers = 32
	var wg sync.WaitGroup
	for i := 0; i < peers; i++ {
		wg.Add(1)
		go func(m Value) {
			defer wg.Done()
			h.AddMask(m)
		}(Value(i + 1))
	}
	wg.Wait()

	// 1 + 2 + ... + 32
	assert.Equal(t, Value(peers*(peers+1)/2), h.MaskedValue())
}
