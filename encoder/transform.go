// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package encoder

// Transform applies the 2-to-1 duplex encoding: each 2-byte group of
// input collapses to one output byte by XOR-ing one byte with the
// bitwise complement of the other. With positive polarity, the first
// byte is combined with the complement of the second (a ^ ^b); with
// negative polarity the complement shifts to the first byte (^a ^ b).
// Odd-length input is padded with a zero byte, so the output is always
// ceil(len(input)/2) bytes.
//
// The transform is not reversed anywhere in the pipeline: downstream
// stages verify the transformed bytes against the message hash and
// never reconstruct the raw input.
func Transform(input []byte, polarity bool) []byte {
	output := make([]byte, 0, (len(input)+1)/2)

	for i := 0; i < len(input); i += 2 {
		a := input[i]
		var b byte
		if i+1 < len(input) {
			b = input[i+1]
		}

		var combined byte
		if polarity {
			combined = a ^ ^b
		} else {
			combined = ^a ^ b
		}
		output = append(output, combined)
	}

	return output
}
