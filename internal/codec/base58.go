// Package codec holds the byte-encoding utilities the pipeline leans on:
// base58 for program ids and signatures, base64 for the "Program data: "
// log preamble. Both are thin wrappers kept free of domain logic.
package codec

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// EncodeBase58 renders raw bytes (a 32-byte pubkey or a signature) as a
// base58 string.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// DecodeBase58 is the inverse of EncodeBase58.
func DecodeBase58(s string) ([]byte, error) {
	return base58.Decode(s)
}

// DecodeBase58To32 decodes a base58 string into exactly 32 bytes, the
// on-chain program identifier size. It fails if the decoded length isn't
// 32.
func DecodeBase58To32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := base58.Decode(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("codec: decoded program id is %d bytes, want 32", len(b))
	}
	copy(out[:], b)
	return out, nil
}
