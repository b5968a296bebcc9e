// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"github.com/bureau-foundation/trident/wire"
)

// Verification statuses, in the order the checks run. The first
// failing check names the status; later checks never run.
const (
	StatusRWXViolation    = "RWX_VIOLATION"
	StatusConsensusFailed = "CONSENSUS_FAILED"
	StatusHRViolation     = "HR_VIOLATION"
	StatusWheelError      = "WHEEL_ERROR"
	StatusVerified        = "VERIFIED"
)

// Result is the outcome of verifying one packet.
type Result struct {
	// Status is VERIFIED or the name of the first failed check.
	Status string

	// Score is the consensus score. For an RWX violation the score
	// is never computed and stays zero.
	Score float64

	// Repaired reports whether the score came from a repaired copy of
	// the content rather than the content itself.
	Repaired bool
}

// Verify runs the four arbitration checks against a packet, in order:
//
//  1. the permission accumulator must carry both WRITE and READ,
//  2. the consensus score must reach the two-thirds threshold,
//  3. the provenance tag must belong to the closed vocabulary,
//  4. the wheel position must fall in the arrival window.
//
// Chaos-classified packets get one repair attempt inside check 2: the
// score is recomputed once on a folded copy of the content, and that
// score carries through to the threshold decision. Verify does not
// mutate the packet.
func (a *Arbiter) Verify(packet *wire.Packet) Result {
	if !packet.HasFlags(wire.RWXWrite | wire.RWXRead) {
		return Result{Status: StatusRWXViolation}
	}

	result := Result{Score: Score(packet.Content, packet.WheelPosition)}
	if Classify(result.Score) == ClassChaos {
		result.Score = Score(Repair(packet.Content), packet.WheelPosition)
		result.Repaired = true
	}
	if result.Score < wire.ConsensusThreshold {
		result.Status = StatusConsensusFailed
		return result
	}

	if !wire.ValidTag(packet.HumanRightsTag) {
		result.Status = StatusHRViolation
		return result
	}

	if !wire.WheelInArrivalWindow(packet.WheelPosition) {
		result.Status = StatusWheelError
		return result
	}

	result.Status = StatusVerified
	return result
}
