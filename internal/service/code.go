package service

import (
    "context"
    "crypto/rand"
    "fmt"
    "math/big"
)

// Reservation codes skip 0, O, 1, I and L so they survive being read
// aloud or copied by hand.
const (
    codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
    codeLength   = 7
    codeAttempts = 10
)

func randomCode() (string, error) {
    size := big.NewInt(int64(len(codeAlphabet)))
    buf := make([]byte, codeLength)
    for i := range buf {
        n, err := rand.Int(rand.Reader, size)
        if err != nil {
            return "", err
        }
        buf[i] = codeAlphabet[n.Int64()]
    }
    return string(buf), nil
}

// uniqueCode draws codes until one is unused.
func (s *ReservationService) uniqueCode(ctx context.Context) (string, error) {
    for i := 0; i < codeAttempts; i++ {
        code, err := s.newCode()
        if err != nil {
            return "", fmt.Errorf("generate code: %w", err)
        }
        taken, err := s.deps.Reservations.CodeExists(ctx, code)
        if err != nil {
            return "", fmt.Errorf("check code: %w", err)
        }
        if !taken {
            return code, nil
        }
    }
    return "", fmt.Errorf("no free reservation code after %d attempts", codeAttempts)
}
