package harvest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRestoreState(t *testing.T) {
	t.Run("missing journal yields empty state", func(t *testing.T) {
		state, err := RestoreState(filepath.Join(t.TempDir(), "none.jsonl"), zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, 0, state.Total())
	})

	t.Run("replays persisted urls", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.jsonl")
		lines := `{"category_url":"https://x/cat","url":"https://x/item/a","title":"A","price":null,"description":null,"scraped_at":"2026-08-01T00:00:00Z"}
{"category_url":"https://x/cat","url":"https://x/item/b","title":"B","price":"12","description":"d","scraped_at":"2026-08-01T00:01:00Z"}
`
		require.NoError(t, os.WriteFile(path, []byte(lines), 0o640))

		state, err := RestoreState(path, zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, 2, state.Total())
		require.True(t, state.Contains("https://x/item/a"))
		require.True(t, state.Contains("https://x/item/b"))
		require.False(t, state.Contains("https://x/item/c"))
	})

	t.Run("malformed lines are skipped not fatal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.jsonl")
		lines := `{"url":"https://x/item/a"}
not json at all
{"title":"missing url"}
{"url":"https://x/item/b"}
`
		require.NoError(t, os.WriteFile(path, []byte(lines), 0o640))

		state, err := RestoreState(path, zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, 2, state.Total())
		require.Equal(t, 2, state.MalformedLines())
	})

	t.Run("duplicate lines never double count", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.jsonl")
		lines := `{"url":"https://x/item/a"}
{"url":"https://x/item/a"}
`
		require.NoError(t, os.WriteFile(path, []byte(lines), 0o640))

		state, err := RestoreState(path, zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, 1, state.Total())
	})
}

func TestCrawlStateAdd(t *testing.T) {
	state := NewCrawlState()
	state.Add("https://x/item/a")
	state.Add("https://x/item/a")
	state.Add("")
	require.Equal(t, 1, state.Total())
	require.True(t, state.Contains("https://x/item/a"))
}
