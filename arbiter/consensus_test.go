// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"bytes"
	"math"
	"testing"

	"github.com/bureau-foundation/trident/wire"
)

func TestOrderRatio(t *testing.T) {
	cases := []struct {
		name    string
		content []byte
		want    float64
	}{
		{"empty", nil, 0.0},
		{"all zero", make([]byte, 16), 0.0},
		{"all ones", bytes.Repeat([]byte{0xFF}, 16), 1.0},
		{"alternating bytes", bytes.Repeat([]byte{0xFF, 0x00}, 8), 0.5},
		{"alternating bits", bytes.Repeat([]byte{0xAA}, 16), 0.5},
	}
	for _, c := range cases {
		if got := orderRatio(c.content); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("%s: orderRatio = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestScoreBalancedContentAtRelayWheel(t *testing.T) {
	// Bit-balanced content at the relay's 120° stamp:
	// |0.5 + sin(120°)|/2 = |0.5 + 0.866|/2 ≈ 0.683, just over the
	// two-thirds threshold.
	content := bytes.Repeat([]byte{0xFF, 0x00}, 32)
	score := Score(content, wire.WheelRelay)
	if math.Abs(score-0.6830) > 0.0005 {
		t.Errorf("Score = %v, want ≈0.683", score)
	}
	if score < wire.ConsensusThreshold {
		t.Errorf("Score %v below threshold %v", score, wire.ConsensusThreshold)
	}
}

func TestScoreZeroContentAtOrigin(t *testing.T) {
	// All-zero content at wheel 0: |0 + sin(0)|/2 = 0.
	if score := Score(make([]byte, 64), 0); score != 0.0 {
		t.Errorf("Score = %v, want 0", score)
	}
}

func TestScoreEmptyContent(t *testing.T) {
	// Empty content scores zero even where the wheel correction alone
	// would be positive.
	if score := Score(nil, wire.WheelRelay); score != 0.0 {
		t.Errorf("Score = %v, want 0", score)
	}
}

func TestScoreClampedToOne(t *testing.T) {
	for wheel := uint16(0); wheel < 360; wheel += 30 {
		score := Score(bytes.Repeat([]byte{0xFF}, 32), wheel)
		if score < 0.0 || score > 1.0 {
			t.Errorf("Score at wheel %d = %v, outside [0, 1]", wheel, score)
		}
	}
}

func TestScoreNegativeWheelCorrection(t *testing.T) {
	// At 270° the correction is -1; the absolute value keeps the
	// score non-negative.
	score := Score(bytes.Repeat([]byte{0xFF, 0x00}, 8), 270)
	if math.Abs(score-0.25) > 1e-9 {
		t.Errorf("Score = %v, want 0.25", score)
	}
}
