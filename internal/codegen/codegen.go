// Package codegen produces and validates public tracking codes.
package codegen

import (
	"fmt"
	"math/rand"
	"regexp"

	"github.com/pkg/errors"
)

const (
	prefix      = "CHM"
	maxAttempts = 10_000
)

// ErrExhausted is returned when the retry budget runs out. With ~9*10^10
// possible codes this is a defensive guard, not something expected at
// realistic store sizes.
var ErrExhausted = errors.New("tracking code generation exhausted")

var codeRe = regexp.MustCompile(`^CHM-\d{3}-\d{8}$`)

func Valid(code string) bool {
	return codeRe.MatchString(code)
}

// NewCode draws CHM-DDD-DDDDDDDD codes until one is not taken. The 3-digit
// group is drawn from 100..999, the 8-digit group is zero-padded from the
// full range. Codes are public identifiers, so math/rand is fine here.
func NewCode(taken func(code string) bool) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code := fmt.Sprintf("%s-%03d-%08d", prefix, 100+rand.Intn(900), rand.Intn(100_000_000))
		if taken != nil && taken(code) {
			continue
		}
		return code, nil
	}
	return "", ErrExhausted
}
