// Package userloader batches user lookups made while rendering one request.
package userloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/repository"
)

type UserLoader struct {
	Loader *dataloader.Loader
}

// NewUserLoader returns a loader that coalesces lookups issued within wait
// into one GetByIDs call. Unknown ids resolve to a nil user.
func NewUserLoader(repo repository.UserRepository, wait time.Duration) *UserLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return failAll(len(keys), fmt.Errorf("invalid user id %q: %w", k.String(), err))
			}
			ids[i] = id
		}

		users, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		byID := make(map[int64]domain.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if u, ok := byID[id]; ok {
				user := u
				results[i] = &dataloader.Result{Data: &user}
			} else {
				results[i] = &dataloader.Result{Data: (*domain.User)(nil)}
			}
		}
		return results
	}

	if wait <= 0 {
		wait = 5 * time.Millisecond
	}
	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(wait))
	return &UserLoader{Loader: loader}
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func key(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

// Load resolves one user. A nil id or an unknown user yields nil.
func (l *UserLoader) Load(ctx context.Context, id *int64) (*domain.User, error) {
	if id == nil {
		return nil, nil
	}
	value, err := l.Loader.Load(ctx, key(*id))()
	if err != nil {
		return nil, err
	}
	user, _ := value.(*domain.User)
	return user, nil
}

// LoadMany resolves every distinct non-nil id in one batch.
func (l *UserLoader) LoadMany(ctx context.Context, ids []*int64) (map[int64]*domain.User, error) {
	seen := make(map[int64]struct{})
	keys := make(dataloader.Keys, 0, len(ids))
	for _, id := range ids {
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		keys = append(keys, key(*id))
	}

	out := make(map[int64]*domain.User, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, errs := l.Loader.LoadMany(ctx, keys)()
	for i, k := range keys {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		id, _ := strconv.ParseInt(k.String(), 10, 64)
		user, _ := values[i].(*domain.User)
		out[id] = user
	}
	return out, nil
}
