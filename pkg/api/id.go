package api

import (
	"crypto/rand"
	"math/big"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	completionIDPrefix = "cmpl_"
	toolCallIDPrefix   = "call_"
)

// NewCompletionID generates a completion ID with the "cmpl_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewCompletionID() string {
	return completionIDPrefix + randomAlphanumeric(idLength)
}

// NewToolCallID generates a tool call ID with the "call_" prefix. Used
// when a backend omits its own call identifier.
func NewToolCallID() string {
	return toolCallIDPrefix + randomAlphanumeric(idLength)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
