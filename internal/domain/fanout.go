package domain

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEachUser runs fn for every user with at most limit calls in flight and returns one outcome per
// user in input order. fn never aborts the loop; a failure is carried in its outcome.
func ForEachUser(ctx context.Context, users []User, limit int, fn func(context.Context, User) UserOutcome) []UserOutcome {
	if limit <= 0 {
		limit = 1
	}
	outcomes := make([]UserOutcome, len(users))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, user := range users {
		i, user := i, user // per-iteration copies (go directive < 1.22)
		g.Go(func() error {
			outcomes[i] = fn(ctx, user)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
