// Package config initializes the application's configuration. It uses Viper
// to read settings from a config file, environment variables, and
// command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crawlkit/harvester/internal/logging"
)

// Init initializes Viper: search paths, defaults, and environment variables.
// Call once at startup, before any component reads configuration.
func Init() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/harvester/")
	viper.AddConfigPath("$HOME/.harvester")

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("HARVESTER") // e.g. HARVESTER_HARVEST_TARGET=500
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}

func setDefaults(v *viper.Viper) {
	const defaultUA = "CatalogHarvester/1.0 (+https://github.com/crawlkit/harvester)"

	v.SetDefault("harvest.target", 100)
	v.SetDefault("harvest.delay", "1200ms")
	v.SetDefault("harvest.jitter", "800ms")
	v.SetDefault("harvest.round_pause", "3s")
	v.SetDefault("harvest.max_no_new", 10)
	v.SetDefault("harvest.fetch_attempts", 5)
	v.SetDefault("harvest.backoff_base", "1500ms")
	v.SetDefault("harvest.backoff_cap", "8s")
	v.SetDefault("harvest.reveal_steps", 8)
	v.SetDefault("harvest.reveal_settle", "900ms")
	v.SetDefault("harvest.stable_after", 2)
	v.SetDefault("harvest.ready_timeout", "20s")
	v.SetDefault("harvest.nav_timeout", "30s")
	v.SetDefault("harvest.engine", "browser")
	v.SetDefault("harvest.user_agent", defaultUA)
	v.SetDefault("harvest.out", "data/records.jsonl")
	v.SetDefault("harvest.fail_out", "data/failures.jsonl")
	v.SetDefault("harvest.diagnostics_dir", "data/diagnostics")
	v.SetDefault("harvest.deny_prefixes", []string{
		"search", "help", "category", "categories", "about", "login",
		"account", "cart", "tag", "tags",
	})

	v.SetDefault("selectors.item_link", "a[href]")
	v.SetDefault("selectors.title", "h1")
	v.SetDefault("selectors.price", "")
	v.SetDefault("selectors.description", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.block_resources", true)
	v.SetDefault("browser.host_qps", 1.0)

	v.SetDefault("mirror.dsn", "")
	v.SetDefault("mirror.table", "records")

	v.SetDefault("logging.development", false)
}
