// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"math"
	"math/bits"
)

// orderRatio returns the fraction of set bits in content: the balance
// of order (1) over chaos (0). Empty content has no order.
func orderRatio(content []byte) float64 {
	if len(content) == 0 {
		return 0.0
	}
	setBits := 0
	for _, b := range content {
		setBits += bits.OnesCount8(b)
	}
	return float64(setBits) / (float64(len(content)) * 8.0)
}

// Score computes the bipartite consensus score for content at a wheel
// position: the set-bit ratio corrected by the sine of the wheel
// angle, folded into [0, 1]. Empty content scores zero regardless of
// wheel position.
func Score(content []byte, wheelDegrees uint16) float64 {
	if len(content) == 0 {
		return 0.0
	}
	correction := math.Sin(float64(wheelDegrees) * math.Pi / 180.0)
	score := math.Abs(orderRatio(content)+correction) / 2.0
	if score > 1.0 {
		return 1.0
	}
	return score
}
