package attendance

import (
	"context"
	"crypto/rand"

	"classtrack/internal/domain"
)

// codeAlphabet gives 36^6 combinations at the default length, so collisions
// are rare and the retry loop almost never spins.
const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const maxCodeAttempts = 100

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// uniqueCode generates a code not held by any existing session. The loop is
// capped; exhausting it surfaces ErrExhaustedCodeSpace instead of spinning
// forever.
func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode(s.codeLen)
		if err != nil {
			return "", err
		}
		taken, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrExhaustedCodeSpace
}
