package util

import "golang.org/x/text/unicode/norm"

// Normalize returns the NFKD form of s so that visually identical
// passwords typed on different platforms hash the same.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// NormalizeBytes returns the NFKD form of b in a newly allocated slice.
func NormalizeBytes(b []byte) []byte {
	return norm.NFKD.Append(nil, b...)
}
