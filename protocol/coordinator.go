package protocol

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// PeerListSender delivers a peer list to a holder, which runs its
// masking interaction against those peers before acknowledging.
type PeerListSender interface {
	SendPeerList(ctx context.Context, holder string, peers []string) error
}

// ValueRevealer collects a holder's current masked value.
type ValueRevealer interface {
	RevealValue(ctx context.Context, holder string) (Value, error)
}

// Coordinator holds the roster of holder endpoints, drives the masking
// phase, and sums the revealed masked values. It learns only the
// aggregate.
type Coordinator struct {
	mu             sync.Mutex
	roster         []string
	initialized    bool
	aggregateValue Value
}

// NewCoordinator creates a coordinator with an empty, uninitialized
// roster.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// ValidateRoster rejects rosters with duplicate endpoints. Self-reference
// cannot be checked here (the coordinator is not a roster member); a
// holder finding itself in its own peer list rejects the peer-list
// delivery instead.
func ValidateRoster(roster []string) error {
	seen := make(map[string]struct{}, len(roster))
	for _, endpoint := range roster {
		if _, dup := seen[endpoint]; dup {
			return fmt.Errorf("endpoint %s: %w", endpoint, ErrDuplicateEndpoint)
		}
		seen[endpoint] = struct{}{}
	}
	return nil
}

// Initialize records the roster and delivers to each member the roster
// minus itself, triggering that member's masking interaction. Deliveries
// run sequentially; each holder internally serializes its own pairwise
// exchanges, so delivery order does not affect the final sum.
//
// A failed delivery aborts initialization and leaves the coordinator
// uninitialized. There is no partial-run recovery.
func (c *Coordinator) Initialize(ctx context.Context, roster []string, send PeerListSender) error {
	if err := ValidateRoster(roster); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.roster = slices.Clone(roster)
	c.initialized = false

	for i, member := range c.roster {
		peers := peersExcluding(c.roster, i)
		if err := send.SendPeerList(ctx, member, peers); err != nil {
			return fmt.Errorf("peer-list delivery to %s: %w", member, err)
		}
	}

	c.initialized = true
	return nil
}

// Aggregate collects every roster member's masked value and returns the
// wraparound sum, storing it as the coordinator's aggregate value. An
// empty initialized roster aggregates to zero.
//
// Aggregate called before all pairwise exchanges settle observes a
// non-matching partial sum; sequencing a complete Initialize before
// Aggregate is the caller's responsibility.
func (c *Coordinator) Aggregate(ctx context.Context, reveal ValueRevealer) (Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return 0, ErrRosterNotInitialized
	}

	var sum Value
	for _, member := range c.roster {
		v, err := reveal.RevealValue(ctx, member)
		if err != nil {
			return 0, fmt.Errorf("reveal from %s: %w", member, err)
		}
		sum += v
	}

	c.aggregateValue = sum
	return sum, nil
}

// Roster returns a copy of the current roster.
func (c *Coordinator) Roster() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.roster)
}

// AggregateValue returns the most recently computed aggregate.
func (c *Coordinator) AggregateValue() Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregateValue
}

// peersExcluding returns roster with the member at index self filtered
// out. The roster itself is never mutated.
func peersExcluding(roster []string, self int) []string {
	peers := make([]string, 0, len(roster)-1)
	for i, endpoint := range roster {
		if i != self {
			peers = append(peers, endpoint)
		}
	}
	return peers
}
