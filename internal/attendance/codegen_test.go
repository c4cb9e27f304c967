package attendance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classtrack/internal/domain"
)

func TestRandomCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := randomCode(6)
		if err != nil {
			t.Fatalf("random code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("want length 6, got %q", code)
		}
		for _, ch := range code {
			if !strings.ContainsRune(codeAlphabet, ch) {
				t.Fatalf("code %q contains %q outside the alphabet", code, ch)
			}
		}
		seen[code] = true
	}
	// 36^6 combinations make 1000 draws collide almost never.
	if len(seen) < 990 {
		t.Fatalf("suspiciously many collisions: %d unique of 1000", len(seen))
	}
}

// saturatedRepo reports every code as taken so the retry loop must give up.
type saturatedRepo struct {
	Repository
}

func (saturatedRepo) CodeExists(context.Context, string) (bool, error) {
	return true, nil
}

func TestUniqueCodeExhaustion(t *testing.T) {
	svc := NewService(saturatedRepo{}, nil, nil, nil, 6)
	_, err := svc.uniqueCode(context.Background())
	if !errors.Is(err, domain.ErrExhaustedCodeSpace) {
		t.Fatalf("want ErrExhaustedCodeSpace, got %v", err)
	}
}
