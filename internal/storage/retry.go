package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/matryer/try"
)

// Retry runs attempt until it succeeds, fails with an error other than
// ErrConflict, or maxAttempts runs have conflicted. The context is checked
// before every run.
//
// Adapters use it to implement the retry half of RunTransaction.
func Retry(ctx context.Context, maxAttempts int, attempt func(n int) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts > try.MaxRetries {
		maxAttempts = try.MaxRetries
	}
	var runs int
	err := try.Do(func(n int) (bool, error) {
		runs = n
		if err := ctx.Err(); err != nil {
			return false, err
		}
		err := attempt(n)
		return n < maxAttempts && errors.Is(err, ErrConflict), err
	})
	if try.IsMaxRetries(err) {
		err = ErrConflict
	}
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("gave up after %d attempts: %w", runs, err)
	}
	return err
}
