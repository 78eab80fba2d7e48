// Package state is the client's single source of truth.
//
// A Store holds one AppState snapshot at a time. SetState builds the next
// snapshot from a copy of the current one, swaps it in, and then calls the
// subscribers in the order they subscribed, on the caller's goroutine. A
// subscriber that panics is logged and skipped; the rest still run.
//
//	store := state.NewStore()
//	unsubscribe := store.Subscribe(func(next, prev state.AppState) {
//	    if next.IsLoading != prev.IsLoading {
//	        // ...
//	    }
//	})
//	defer unsubscribe()
//
//	store.SetLoading(true)
package state
