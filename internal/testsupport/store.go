package testsupport

import (
	"testing"

	"lifelog/internal/config"
	"lifelog/internal/entry"
)

// MustOpenStore opens an entry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *entry.Store {
	t.Helper()

	store, err := entry.Open(cfg)
	if err != nil {
		t.Fatalf("entry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
