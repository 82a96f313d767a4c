// Package euid implements the entity unique identifier scheme used for
// feed list membership keys.
//
// An EUID is a 64-bit value carrying a coarse creation timestamp and 20
// bits of randomness. The timestamp is stored offset by TSOffset and
// byte-swapped in the high bits, so identifiers grow with time in
// expectation while nearby ids do not collide on the low bits.
package euid

import (
	"crypto/rand"
	"fmt"
	"math/bits"
	"time"
)

// TSOffset is subtracted from the unix timestamp before encoding.
const TSOffset int64 = 1073741823

// RandByteLen is the exact number of random bytes Encode consumes.
// Only the top 20 bits of the three bytes are used.
const RandByteLen = 3

// Encode builds an EUID from a unix timestamp (seconds) and exactly three
// random bytes. It fails only when randBytes has the wrong length.
//
// Precondition: unixTS must satisfy TSOffset <= unixTS < TSOffset+2^32.
// Values outside that range wrap silently; callers pass the current time,
// which stays in range until far beyond the year 2100.
func Encode(unixTS int64, randBytes []byte) (uint64, error) {
	if len(randBytes) != RandByteLen {
		return 0, fmt.Errorf("euid: need exactly %d random bytes, got %d", RandByteLen, len(randBytes))
	}
	low := (uint32(randBytes[0])<<16 | uint32(randBytes[1])<<8 | uint32(randBytes[2])) >> 4
	ts := bits.ReverseBytes32(uint32(unixTS - TSOffset))
	return uint64(ts)<<20 | uint64(low), nil
}

// DecodeTimestamp recovers the unix timestamp embedded in an EUID. It is
// total over the full 64-bit domain and is the exact inverse of the high-bit
// half of Encode.
func DecodeTimestamp(id uint64) int64 {
	return int64(bits.ReverseBytes32(uint32(id>>20))) + TSOffset
}

// DecodeTime is DecodeTimestamp as a time.Time.
func DecodeTime(id uint64) time.Time {
	return time.Unix(DecodeTimestamp(id), 0)
}

// Generate returns a fresh EUID for the current time, using the system
// cryptographic random source.
func Generate() uint64 {
	return GenerateAt(time.Now().Unix())
}

// GenerateAt returns a fresh EUID for the given unix timestamp.
func GenerateAt(unixTS int64) uint64 {
	var b [RandByteLen]byte
	// crypto/rand.Read never fails on supported platforms
	_, _ = rand.Read(b[:])
	id, _ := Encode(unixTS, b[:])
	return id
}
