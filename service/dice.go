package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	DieMinFace = 1
	DieMaxFace = 6
)

// CryptoDice rolls a fair six-sided die from the system CSPRNG
type CryptoDice struct{}

func (CryptoDice) Roll(ctx context.Context) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(DieMaxFace))
	if err != nil {
		return 0, fmt.Errorf("failed to read random number: %w", err)
	}
	return int(n.Int64()) + DieMinFace, nil
}

func validFace(v int) bool {
	return v >= DieMinFace && v <= DieMaxFace
}
