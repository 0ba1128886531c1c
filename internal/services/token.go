package services

import (
	"crypto/rand"
	"math/big"

	"vaquita/internal/domain"
)

const invitationTokenLength = 10

var invitationTokenAlphabet = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

type randomTokenGenerator struct {
	length int
}

// NewTokenGenerator returns a TokenGenerator producing lowercase alphanumeric
// tokens from crypto/rand.
func NewTokenGenerator() domain.TokenGenerator {
	return &randomTokenGenerator{length: invitationTokenLength}
}

func (g *randomTokenGenerator) Generate() (string, error) {
	b := make([]rune, g.length)
	max := big.NewInt(int64(len(invitationTokenAlphabet)))
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = invitationTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
