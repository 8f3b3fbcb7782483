package protocol

import (
	"crypto/hkdf"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// MaskSource draws masking values. Masks must be uniform over the full
// 32-bit domain so that a single masked value is indistinguishable from
// random.
type MaskSource interface {
	Next() (Value, error)
}

// CryptoRandSource draws masks from crypto/rand. It is the default
// source for holders.
type CryptoRandSource struct{}

func (CryptoRandSource) Next() (Value, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("draw mask: %w", err)
	}
	return Value(binary.BigEndian.Uint32(buf[:])), nil
}

// HKDFSource expands a seed into a deterministic mask stream. Used for
// reproducible protocol traces; the uniformity of HKDF output over the
// 32-bit domain matches the security requirement of the random source.
type HKDFSource struct {
	seed    []byte
	counter uint32
}

// NewHKDFSource creates a deterministic mask source from seed. Two
// sources with the same seed produce identical streams.
func NewHKDFSource(seed []byte) *HKDFSource {
	return &HKDFSource{seed: append([]byte(nil), seed...)}
}

func (s *HKDFSource) Next() (Value, error) {
	salt := binary.BigEndian.AppendUint32(append([]byte(nil), s.seed...), s.counter)
	s.counter++

	key, err := hkdf.Key(sha256.New, salt, nil, "mask", 4)
	if err != nil {
		return 0, fmt.Errorf("derive mask: %w", err)
	}
	return Value(binary.BigEndian.Uint32(key)), nil
}

// RandomValueIn draws a uniform Value in [min, max) from crypto/rand.
// Holders started without an explicit value use this to pick one.
func RandomValueIn(min, max Value) (Value, error) {
	if max <= min {
		return 0, fmt.Errorf("invalid value range [%d, %d)", min, max)
	}
	span := uint64(max - min)

	// Rejection sampling to avoid modulo bias.
	limit := (uint64(1) << 32) / span * span
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("draw value: %w", err)
		}
		n := uint64(binary.BigEndian.Uint32(buf[:]))
		if n < limit {
			return min + Value(n%span), nil
		}
	}
}
