package harvest

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set("harvest.listing_url", "https://www.books.example.com/catalog/fiction")
	v.Set("harvest.target", 50)
	v.Set("harvest.out", "data/records.jsonl")
	v.Set("harvest.fail_out", "data/failures.jsonl")
	v.Set("harvest.delay", "1s")
	v.Set("harvest.max_no_new", 10)
	v.Set("harvest.fetch_attempts", 5)
	v.Set("harvest.backoff_base", "1500ms")
	v.Set("harvest.backoff_cap", "8s")
	v.Set("harvest.reveal_steps", 8)
	v.Set("harvest.ready_timeout", "20s")
	v.Set("harvest.nav_timeout", "30s")
	v.Set("harvest.engine", "browser")
	v.Set("harvest.user_agent", "test-agent/1.0")
	v.Set("selectors.item_link", "a.product")
	v.Set("selectors.title", "h1.title")
	return v
}

func TestLoadConfig(t *testing.T) {
	t.Run("loads a complete configuration", func(t *testing.T) {
		cfg, err := LoadConfig(validViper())
		require.NoError(t, err)
		require.Equal(t, 50, cfg.Target)
		require.Equal(t, time.Second, cfg.FetchDelay)
		require.Equal(t, "books.example.com", cfg.Host, "host derived from listing url, www stripped")
	})

	t.Run("explicit host wins over derivation", func(t *testing.T) {
		v := validViper()
		v.Set("harvest.host", "Books.Example.COM")
		cfg, err := LoadConfig(v)
		require.NoError(t, err)
		require.Equal(t, "books.example.com", NewScope(cfg.Host, nil).host)
	})

	t.Run("rejects missing listing url", func(t *testing.T) {
		v := validViper()
		v.Set("harvest.listing_url", "")
		_, err := LoadConfig(v)
		require.Error(t, err)
	})

	t.Run("rejects non-positive target", func(t *testing.T) {
		v := validViper()
		v.Set("harvest.target", 0)
		_, err := LoadConfig(v)
		require.Error(t, err)
	})

	t.Run("rejects unknown engine", func(t *testing.T) {
		v := validViper()
		v.Set("harvest.engine", "curl")
		_, err := LoadConfig(v)
		require.Error(t, err)
	})

	t.Run("rejects inverted backoff bounds", func(t *testing.T) {
		v := validViper()
		v.Set("harvest.backoff_base", "10s")
		v.Set("harvest.backoff_cap", "1s")
		_, err := LoadConfig(v)
		require.Error(t, err)
	})

	t.Run("rejects missing title selector", func(t *testing.T) {
		v := validViper()
		v.Set("selectors.title", "")
		_, err := LoadConfig(v)
		require.Error(t, err)
	})
}

func TestConfigDerivations(t *testing.T) {
	cfg, err := LoadConfig(validViper())
	require.NoError(t, err)

	policy := cfg.RetryPolicy()
	require.Equal(t, 5, policy.MaxAttempts)
	require.Equal(t, 1500*time.Millisecond, policy.Base)
	require.Equal(t, 8*time.Second, policy.Cap)

	scope := cfg.Scope()
	require.True(t, scope.InScopeItem("https://books.example.com/item/abc"))
}
