package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirStore_SetGetDelete(t *testing.T) {
	s, err := NewDirStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	_, err = s.Get("sidecar:current")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("sidecar:current", `{"pid":42}`))
	got, err := s.Get("sidecar:current")
	require.NoError(t, err)
	require.Equal(t, `{"pid":42}`, got)

	require.NoError(t, s.Set("sidecar:current", `{"pid":43}`))
	got, err = s.Get("sidecar:current")
	require.NoError(t, err)
	require.Equal(t, `{"pid":43}`, got)

	require.NoError(t, s.Delete("sidecar:current"))
	require.NoError(t, s.Delete("sidecar:current"))
	_, err = s.Get("sidecar:current")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("a/b", "x"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a__b.json", entries[0].Name())
}

func TestEscape(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"plain", "plain"},
		{"sidecar:current", "sidecar_c_current"},
		{`a/b\c`, "a__b__c"},
	}
	for _, tt := range tests {
		if got := escape(tt.key); got != tt.want {
			t.Errorf("escape(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
