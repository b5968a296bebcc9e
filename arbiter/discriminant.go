// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

// Classification is the discriminant class of a consensus score.
type Classification int

const (
	// ClassOrder packets score above the balance point and take the
	// fast path to the threshold decision.
	ClassOrder Classification = iota

	// ClassFlash packets sit exactly on the balance point. They are
	// not repaired: a flash is a boundary observation, not damage.
	ClassFlash

	// ClassChaos packets score below the balance point and get one
	// repair attempt before the threshold decision.
	ClassChaos
)

// String returns the class name.
func (c Classification) String() string {
	switch c {
	case ClassOrder:
		return "order"
	case ClassFlash:
		return "flash"
	case ClassChaos:
		return "chaos"
	default:
		return "unknown"
	}
}

// Classify places a consensus score by the sign of the quadratic
// discriminant b²-4ac with a=1, c=1, b=4·score. The discriminant is
// positive exactly when the score exceeds 1/2, so the three classes
// split at the order/chaos balance point.
func Classify(score float64) Classification {
	b := 4.0 * score
	discriminant := b*b - 4.0
	switch {
	case discriminant > 0:
		return ClassOrder
	case discriminant < 0:
		return ClassChaos
	default:
		return ClassFlash
	}
}

// Repair applies one running XOR fold to a copy of content: each byte
// absorbs its predecessor, spreading surviving order through runs of
// chaos. The input is never modified — the message hash covers the
// original bytes, and a repaired packet still republishes them.
func Repair(content []byte) []byte {
	repaired := make([]byte, len(content))
	copy(repaired, content)
	for i := 1; i < len(repaired); i++ {
		repaired[i] ^= repaired[i-1]
	}
	return repaired
}
