package testutils

import (
	"path/filepath"
	"testing"

	"github.com/cjones26/jackalope-web/internal/store"
)

// SetupStore opens a throwaway local state database under t.TempDir
// and closes it when the test finishes.
func SetupStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
