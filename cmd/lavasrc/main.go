// Package main provides the lavasrc CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"lavasrc/internal/audio"
	spotifycatalog "lavasrc/internal/catalog/spotify"
	"lavasrc/internal/core"
	"lavasrc/internal/flood"
	httpserver "lavasrc/internal/http"
	"lavasrc/internal/mirror"
	"lavasrc/internal/store"
	"lavasrc/pkg/musiclink"
)

const (
	defaultServerHost = "0.0.0.0"
	envPrefix         = "LAVASRC"
	// listSeparator separates list values given through environment variables.
	listSeparator = "|"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lavasrc",
	Short: "LavaSrc - streamable mirrors for catalog tracks",
	Long: `lavasrc resolves tracks from catalogs without streamable audio (Spotify, Apple Music,
Tidal, Beatport, Amazon Music) to equivalent tracks on Lavalink search providers and serves
the result over HTTP.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mirror HTTP API",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console)")

	flags.String("lavalink-node-name", defaults.Lavalink.NodeName, "Lavalink node name")
	flags.String("lavalink-address", defaults.Lavalink.Address, "Lavalink node address (host:port)")
	flags.String("lavalink-password", defaults.Lavalink.Password, "Lavalink node password")
	flags.Bool("lavalink-secure", false, "Use TLS to connect to the Lavalink node")
	flags.String("lavalink-user-id", "", "Bot user ID the Lavalink client identifies as")

	flags.String("spotify-client-id", "", "Spotify client ID (enables Spotify links)")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-market", defaults.Spotify.Market, "Spotify market used for track lookups")

	flags.StringArray("mirror-providers", mirror.DefaultProviders,
		"Provider templates tried in order; %ISRC% and %QUERY% are substituted (env: separate with "+listSeparator+")")
	flags.StringArray("mirroring-prefixes", nil, "Additional search prefixes of mirroring sources that are never used as providers")
	flags.Duration("mirror-load-timeout", defaults.Mirror.LoadTimeout, "Timeout of a single provider load (0 waits forever)")

	flags.StringArray("advanced-sources", nil, "Provider sources whose search results are re-ranked by the match scorer (e.g. ytsearch)")
	flags.Float64("title-threshold", defaults.Advanced.TitleThreshold, "Minimum title similarity of a candidate")
	flags.Float64("author-threshold", defaults.Advanced.AuthorThreshold, "Author similarity required near the total threshold")
	flags.Float64("total-match-threshold", defaults.Advanced.TotalMatchThreshold, "Composite score the best candidate must reach")
	flags.Bool("skip-restricted", false, "Skip restricted (preview-only) SoundCloud candidates")
	flags.Float64("level-one-penalty", 0, "Penalty coefficient for title match ratios of 80 and above, suggested 1 (unset: no penalty)")
	flags.Float64("level-two-penalty", 0, "Penalty coefficient for title match ratios of 65 to 79, suggested 2 (unset: no penalty)")
	flags.Float64("level-three-penalty", 0, "Penalty coefficient for title match ratios below 65, suggested 0.8 (unset: no penalty)")

	flags.Int("cache-size", 1000, "Number of cached resolutions (0 disables the cache)")
	flags.Duration("cache-ttl", defaults.Cache.TTL, "How long resolutions stay cached")
	flags.Float64("cache-bloom-fp-rate", defaults.Cache.BloomFalsePositiveRate, "False positive rate of the cache Bloom filter")

	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", core.DefaultServerPort, "HTTP server port")
	flags.Int("flood-limit-per-minute", core.DefaultFloodLimitPerMinute, "Maximum resolve requests per client per minute (0 disables)")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(serveCmd, newResolveCmd(), newPlayCmd(), newSearchCmd())
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// Don't exit if .env file doesn't exist, just warn
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log)
}

func buildLogger(cfg core.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runServe(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting lavasrc",
		zap.Strings("providers", config.Mirror.Providers),
		zap.Strings("advanced_sources", config.Advanced.Sources),
		zap.String("lavalink", config.Lavalink.Address),
		zap.Bool("spotify_enabled", config.Spotify.ClientID != ""))

	svcs, err := startServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	return runServices(ctx, svcs)
}

type services struct {
	audio      *audio.Client
	resolver   *mirror.Resolver
	spotify    *spotifycatalog.Client
	links      []httpserver.LinkResolver
	cache      *store.MirrorCache
	metrics    *httpserver.Metrics
	floodgate  *flood.Floodgate
	httpServer *httpserver.Server
}

func initializeServices(ctx context.Context) (*services, error) {
	audioClient, err := audio.New(ctx, config.Lavalink, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Lavalink: %w", err)
	}

	svcs := &services{
		audio:   audioClient,
		metrics: httpserver.NewMetrics(),
	}

	opts := []mirror.Option{mirror.WithRecorder(svcs.metrics)}
	if len(config.Advanced.Sources) > 0 {
		opts = append(opts, mirror.WithScorer(mirror.NewScorer(config.Advanced, logger)))
	}
	if config.Cache.Size > 0 {
		svcs.cache = store.NewMirrorCache(config.Cache, logger)
		svcs.metrics.ObserveCache(svcs.cache)
		opts = append(opts, mirror.WithCache(svcs.cache))
	}

	templates := mirror.NewTemplateSet(config.Mirror.Providers, config.Mirror.MirroringPrefixes...)
	bridge := mirror.NewBridge(audioClient, config.Mirror.LoadTimeout, logger)
	svcs.resolver = mirror.NewResolver(templates, bridge, logger, opts...)

	if config.Spotify.ClientID != "" {
		svcs.spotify = spotifycatalog.NewClient(ctx, config.Spotify, logger)
		svcs.links = append(svcs.links, svcs.spotify)
	}
	svcs.links = append(svcs.links, musiclink.NewManagerAdapter(nil))

	if config.Server.FloodLimitPerMinute > 0 {
		svcs.floodgate = flood.New(config.Server.FloodLimitPerMinute)
	}

	return svcs, nil
}

func (s *services) close() {
	if s.floodgate != nil {
		s.floodgate.Stop()
	}
	s.audio.Close()
}

// sourceTrack resolves a catalog link through the first link resolver that
// accepts it.
func (s *services) sourceTrack(ctx context.Context, link string, preview bool) (core.SourceTrack, error) {
	track, err := httpserver.ResolveLink(ctx, s.links, link, preview)
	if err != nil {
		return core.SourceTrack{}, fmt.Errorf("%s: %w", link, err)
	}
	return track, nil
}

func runServices(ctx context.Context, svcs *services) error {
	svcs.httpServer = httpserver.NewServer(&config.Server, svcs.metrics, httpserver.Dependencies{
		Resolver:  svcs.resolver,
		Links:     svcs.links,
		Floodgate: svcs.floodgate,
		Ready:     svcs.audio.Ready,
	}, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	logger.Info("lavasrc started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("lavasrc stopped with error", zap.Error(err))
		return err
	}

	logger.Info("lavasrc stopped gracefully")
	return nil
}
