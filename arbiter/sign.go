// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"

	"github.com/bureau-foundation/trident/wire"
)

// KeySize is the width of the consensus signing secret.
const KeySize = 32

// signatureMarker is the domain-separation suffix mixed into every
// consensus signature.
const signatureMarker = "TRIDENT_CONSENSUS"

// ErrSealed is returned when signing a packet whose signature is
// already set. A sealed packet has passed arbitration; re-signing it
// would forge a second consensus for the same revision.
var ErrSealed = errors.New("packet is already sealed")

// Sign computes the consensus signature over the packet's sequence
// token, message hash, and provenance tag, and seals the packet with
// it. The signature is HMAC-SHA512 under the arbiter's secret, filling
// the signature field exactly.
func (a *Arbiter) Sign(packet *wire.Packet) error {
	if packet.Sealed() {
		return ErrSealed
	}
	signature := a.computeSignature(packet)
	copy(packet.ConsensusSignature[:], signature)
	return nil
}

// VerifySignature reports whether a sealed packet's signature matches
// the arbiter's secret. Observers holding the secret use this to
// confirm a republished packet really passed this arbiter.
func (a *Arbiter) VerifySignature(packet *wire.Packet) bool {
	expected := a.computeSignature(packet)
	return hmac.Equal(expected, packet.ConsensusSignature[:])
}

func (a *Arbiter) computeSignature(packet *wire.Packet) []byte {
	mac := hmac.New(sha512.New, a.key[:])

	var sequence [4]byte
	binary.LittleEndian.PutUint32(sequence[:], packet.SequenceToken)
	mac.Write(sequence[:])
	mac.Write(packet.MessageHash[:])
	mac.Write([]byte(packet.HumanRightsTag))
	mac.Write([]byte(signatureMarker))

	return mac.Sum(nil)
}
