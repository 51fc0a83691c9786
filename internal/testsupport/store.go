package testsupport

import (
	"testing"

	"cadence/internal/config"
	"cadence/internal/history"
)

// MustOpenHistory opens the history database for cfg and closes it when the
// test finishes.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
