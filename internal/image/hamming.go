package image

import (
	"encoding/hex"
	"math/bits"
)

// hammingDistance counts differing bits between two equal-length
// fingerprints. Returns -1 when the fingerprints are not comparable.
func hammingDistance(a, b []byte) int {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	d := 0
	for i := range a {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}

// similarityPercent converts a Hamming distance over an L-bit fingerprint
// into a percentage: 100 * (1 - d/L).
func similarityPercent(distance, bitLen int) float64 {
	if bitLen <= 0 {
		return 0
	}
	return 100 * (1 - float64(distance)/float64(bitLen))
}

// decodeFingerprint turns a hex perceptual hash into comparable bytes.
// Malformed or empty hashes yield nil, and the record is skipped in scans.
func decodeFingerprint(phash string) []byte {
	if phash == "" {
		return nil
	}
	b, err := hex.DecodeString(phash)
	if err != nil {
		return nil
	}
	return b
}
