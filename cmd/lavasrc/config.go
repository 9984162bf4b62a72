package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"

	"lavasrc/internal/core"
)

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureLog(cfg)
	configureLavalink(cfg)
	configureSpotify(cfg)
	configureMirror(cfg)
	configureAdvanced(cfg)
	configureCache(cfg)
	configureServer(cfg)

	return cfg
}

func configureLog(cfg *core.Config) {
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureLavalink(cfg *core.Config) {
	cfg.Lavalink.NodeName = viper.GetString("lavalink-node-name")
	cfg.Lavalink.Address = viper.GetString("lavalink-address")
	cfg.Lavalink.Password = viper.GetString("lavalink-password")
	cfg.Lavalink.Secure = viper.GetBool("lavalink-secure")
	cfg.Lavalink.UserID = viper.GetString("lavalink-user-id")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.Market = viper.GetString("spotify-market")
}

func configureMirror(cfg *core.Config) {
	cfg.Mirror.Providers = stringList("mirror-providers")
	cfg.Mirror.MirroringPrefixes = stringList("mirroring-prefixes")
	cfg.Mirror.LoadTimeout = viper.GetDuration("mirror-load-timeout")
}

func configureAdvanced(cfg *core.Config) {
	cfg.Advanced.Sources = stringList("advanced-sources")
	cfg.Advanced.TitleThreshold = viper.GetFloat64("title-threshold")
	cfg.Advanced.AuthorThreshold = viper.GetFloat64("author-threshold")
	cfg.Advanced.TotalMatchThreshold = viper.GetFloat64("total-match-threshold")
	cfg.Advanced.SkipRestricted = viper.GetBool("skip-restricted")
	cfg.Advanced.LevelOnePenalty = optionalFloat("level-one-penalty")
	cfg.Advanced.LevelTwoPenalty = optionalFloat("level-two-penalty")
	cfg.Advanced.LevelThreePenalty = optionalFloat("level-three-penalty")
}

func configureCache(cfg *core.Config) {
	cfg.Cache.Size = viper.GetInt("cache-size")
	cfg.Cache.TTL = viper.GetDuration("cache-ttl")
	cfg.Cache.BloomFalsePositiveRate = viper.GetFloat64("cache-bloom-fp-rate")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
}

// optionalFloat returns the value of key only when it was set through a flag
// or the environment. Flag defaults alone leave the option empty.
func optionalFloat(key string) mo.Option[float64] {
	if !viper.IsSet(key) {
		return mo.None[float64]()
	}
	return mo.Some(viper.GetFloat64(key))
}

// stringList reads a list setting. Flags may be repeated; environment values
// are split on listSeparator.
func stringList(key string) []string {
	var raw []string
	switch v := viper.Get(key).(type) {
	case string:
		raw = []string{v}
	case []string:
		raw = v
	default:
		raw = viper.GetStringSlice(key)
	}

	var values []string
	for _, entry := range raw {
		values = append(values, strings.Split(entry, listSeparator)...)
	}
	values = lo.Map(values, func(v string, _ int) string { return strings.TrimSpace(v) })
	return lo.Compact(values)
}

func validateConfig(cfg *core.Config) error {
	if cfg.Lavalink.Address == "" {
		return errors.New("lavalink address is required")
	}
	if cfg.Lavalink.UserID == "" {
		return errors.New("lavalink user ID is required")
	}
	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret == "" {
		return errors.New("spotify client secret is required when a client ID is set")
	}
	if cfg.Mirror.LoadTimeout < 0 {
		return fmt.Errorf("mirror load timeout must not be negative, got %s", cfg.Mirror.LoadTimeout)
	}
	if cfg.Cache.Size < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", cfg.Cache.Size)
	}
	if cfg.Cache.Size > 0 && (cfg.Cache.BloomFalsePositiveRate <= 0 || cfg.Cache.BloomFalsePositiveRate >= 1) {
		return fmt.Errorf("cache bloom false positive rate must be between 0 and 1, got %g",
			cfg.Cache.BloomFalsePositiveRate)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return nil
}
