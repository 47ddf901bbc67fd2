// Package fallback implements the two-tier call strategy used for every
// request to the media service: try with the stored credential first and,
// when that fails, retry exactly once without it.
package fallback

import (
	"context"
	"fmt"
)

// Outcome tags how a two-tier call ended.
type Outcome int

const (
	// Success means the first tier that ran succeeded.
	Success Outcome = iota

	// AuthFailed means the authenticated tier failed and the
	// unauthenticated retry succeeded. The failure is a warning only.
	AuthFailed

	// BothFailed means no tier produced a value.
	BothFailed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AuthFailed:
		return "auth-failed"
	case BothFailed:
		return "both-failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Call is one tier of a two-tier request.
type Call[T any] func(ctx context.Context) (T, error)

// Result is the tagged result of Do.
type Result[T any] struct {
	Value   T
	Outcome Outcome

	// AuthErr is the authenticated tier's error for AuthFailed and
	// BothFailed outcomes (nil when that tier never ran).
	AuthErr error

	// Err is the final error for BothFailed.
	Err error
}

// OK reports whether a value was produced.
func (r Result[T]) OK() bool {
	return r.Outcome != BothFailed
}

// Do runs authenticated and, if it fails, unauthenticated.
//
// A nil authenticated call means no credential is available: only the
// unauthenticated tier runs and its failure is BothFailed. The retry is
// skipped when ctx is already done.
func Do[T any](ctx context.Context, authenticated, unauthenticated Call[T]) Result[T] {
	var res Result[T]

	if authenticated != nil {
		v, err := authenticated(ctx)
		if err == nil {
			res.Value = v
			res.Outcome = Success
			return res
		}
		res.AuthErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Outcome = BothFailed
			res.Err = ctxErr
			return res
		}
	}

	v, err := unauthenticated(ctx)
	if err != nil {
		res.Outcome = BothFailed
		res.Err = err
		return res
	}

	res.Value = v
	if res.AuthErr != nil {
		res.Outcome = AuthFailed
	} else {
		res.Outcome = Success
	}
	return res
}
