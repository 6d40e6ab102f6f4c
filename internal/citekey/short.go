package citekey

import (
	"math/big"

	"golang.org/x/crypto/blake2b"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Shorten derives a short citation key from a standard key: a 6-byte
// BLAKE2b digest of the key encoded in base62, so the result uses only
// characters in 0-9, A-Z, and a-z. The input should already be
// standardized; different inputs for the same record hash differently.
func Shorten(standardID string) string {
	hasher, err := blake2b.New(6, nil)
	if err != nil {
		// only reachable with an invalid digest size
		panic(err)
	}
	hasher.Write([]byte(standardID))
	return encodeBase62(hasher.Sum(nil))
}

// encodeBase62 encodes bytes as a big-endian base62 integer string.
func encodeBase62(data []byte) string {
	n := new(big.Int).SetBytes(data)
	if n.Sign() == 0 {
		return "0"
	}
	base := big.NewInt(62)
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, base62Alphabet[mod.Int64()])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
