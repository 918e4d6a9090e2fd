// Package random wraps crypto/rand for codes and small numbers.
package random

import (
	"crypto/rand"
	"math/big"
)

// urlSafe is the alphabet of generated invite codes.
const urlSafe = "0123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Seq generates a random string of length n from a URL-safe alphabet
// without look-alike characters.
func Seq(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = urlSafe[Num(len(urlSafe))]
	}
	return string(out)
}

// Num generates a random integer between 0 and n-1.
func Num(n int) int {
	r, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return int(r.Int64())
}
