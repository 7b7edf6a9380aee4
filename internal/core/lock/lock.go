// Package lock defines per-key mutual exclusion used to serialize
// read-modify-write cycles on a single stock balance.
package lock

import (
	"context"
	"sort"
)

// Unlock releases a held lock. Safe to call once.
type Unlock func()

// Locker acquires exclusive locks by key.
// Implementations: KeyedMutex (single process) and the Redis locker in
// infrastructure/lock (across instances).
type Locker interface {
	// Lock blocks until key is held, ctx is done, or the implementation gives up.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// LockAll acquires every distinct key in sorted order, so two callers locking
// overlapping sets never deadlock. On failure, keys already held are released.
func LockAll(ctx context.Context, l Locker, keys ...string) (Unlock, error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	held := make([]Unlock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, k := range sorted {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, unlock)
	}
	return release, nil
}

type heldKey struct{}

// Hold acquires keys like LockAll and returns ctx marked as holding them.
// Keys ctx already holds are skipped, so a nested Hold on the returned ctx
// never waits on its own caller.
func Hold(ctx context.Context, l Locker, keys ...string) (context.Context, Unlock, error) {
	held, _ := ctx.Value(heldKey{}).(map[string]struct{})

	var missing []string
	for _, k := range keys {
		if _, ok := held[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return ctx, func() {}, nil
	}

	unlock, err := LockAll(ctx, l, missing...)
	if err != nil {
		return ctx, nil, err
	}

	next := make(map[string]struct{}, len(held)+len(missing))
	for k := range held {
		next[k] = struct{}{}
	}
	for _, k := range missing {
		next[k] = struct{}{}
	}
	return context.WithValue(ctx, heldKey{}, next), unlock, nil
}

// IsHeld reports whether ctx carries key from an earlier Hold.
func IsHeld(ctx context.Context, key string) bool {
	held, _ := ctx.Value(heldKey{}).(map[string]struct{})
	_, ok := held[key]
	return ok
}
