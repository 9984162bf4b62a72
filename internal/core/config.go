package core

import (
	"time"

	"github.com/samber/mo"
)

const (
	// DefaultServerPort is the default HTTP port for the mirror API.
	DefaultServerPort = 8080
	// DefaultLoadTimeout bounds a single provider load.
	DefaultLoadTimeout = 10 * time.Second
	// DefaultTitleThreshold is the minimum token-sort title similarity a candidate needs.
	DefaultTitleThreshold = 50.0
	// DefaultAuthorThreshold is the author similarity required inside the smoothing band.
	DefaultAuthorThreshold = 70.0
	// DefaultTotalMatchThreshold is the composite score the best candidate must reach.
	DefaultTotalMatchThreshold = 196.0
	// DefaultCacheTTL is how long resolved mirrors stay cached.
	DefaultCacheTTL = 30 * time.Minute
	// DefaultFloodLimitPerMinute limits resolve requests per client.
	DefaultFloodLimitPerMinute = 30
)

type Config struct {
	Lavalink LavalinkConfig
	Spotify  SpotifyConfig
	Mirror   MirrorConfig
	Advanced AdvancedMirrorConfig
	Cache    CacheConfig
	Server   ServerConfig
	Log      LogConfig
}

type LavalinkConfig struct {
	NodeName string
	Address  string
	Password string
	Secure   bool
	UserID   string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	Market       string
}

// MirrorConfig holds the provider templates tried for every catalog track.
type MirrorConfig struct {
	Providers []string
	// MirroringPrefixes are search prefixes of other mirroring sources, in
	// addition to the built-in ones.
	MirroringPrefixes []string
	// LoadTimeout bounds each provider load; zero waits for the load subsystem.
	LoadTimeout time.Duration
}

// AdvancedMirrorConfig configures fuzzy re-ranking of search results.
// Scoring only applies to providers whose source is listed in Sources.
type AdvancedMirrorConfig struct {
	Sources             []string
	TitleThreshold      float64
	AuthorThreshold     float64
	TotalMatchThreshold float64
	SkipRestricted      bool
	LevelOnePenalty     mo.Option[float64]
	LevelTwoPenalty     mo.Option[float64]
	LevelThreePenalty   mo.Option[float64]
}

type CacheConfig struct {
	Size                   int
	TTL                    time.Duration
	BloomFalsePositiveRate float64
}

type ServerConfig struct {
	Host                string
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	FloodLimitPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Lavalink: LavalinkConfig{
			NodeName: "main",
			Address:  "localhost:2333",
			Password: "youshallnotpass",
		},
		Spotify: SpotifyConfig{
			Market: "US",
		},
		Mirror: MirrorConfig{
			LoadTimeout: DefaultLoadTimeout,
		},
		Advanced: AdvancedMirrorConfig{
			TitleThreshold:      DefaultTitleThreshold,
			AuthorThreshold:     DefaultAuthorThreshold,
			TotalMatchThreshold: DefaultTotalMatchThreshold,
			LevelOnePenalty:     mo.None[float64](),
			LevelTwoPenalty:     mo.None[float64](),
			LevelThreePenalty:   mo.None[float64](),
		},
		Cache: CacheConfig{
			Size:                   0,
			TTL:                    DefaultCacheTTL,
			BloomFalsePositiveRate: 0.001,
		},
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                DefaultServerPort,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        30 * time.Second,
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
