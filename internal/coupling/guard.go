package coupling

import "cvxlab/internal/store"

// Guard is the scoped cleanup guard: it backs up the store file on
// acquisition and restores it on release regardless of how the loop
// exits, guaranteeing the canonical store is never left mutated unless
// the coupling loop runs to completion and the caller explicitly
// re-exports results afterward.
type Guard struct {
	s          store.Store
	backupName string
	released   bool
}

// Acquire copies the store's current file to backupName.
func Acquire(s store.Store, backupName string) (*Guard, error) {
	if err := s.Backup(backupName); err != nil {
		return nil, err
	}
	return &Guard{s: s, backupName: backupName}, nil
}

// Release restores the canonical store from the backup snapshot and
// removes the snapshot file. Safe to call multiple times; only the
// first call has effect. Intended to run under defer so it fires on
// every exit path, including a panic unwinding through it.
func (g *Guard) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	if err := g.s.Restore(g.backupName); err != nil {
		return err
	}
	return g.s.Delete(g.backupName)
}
