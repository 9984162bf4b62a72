package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	spotifycatalog "lavasrc/internal/catalog/spotify"
	"lavasrc/internal/core"
	"lavasrc/internal/mirror"
	"lavasrc/internal/playback"
	"lavasrc/pkg/text"
)

// stopTimeout bounds stopping the player after play was interrupted.
const stopTimeout = 5 * time.Second

func newResolveCmd() *cobra.Command {
	var (
		title    string
		author   string
		duration time.Duration
		isrc     string
		preview  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [url]",
		Short: "Resolve one catalog track to its streamable mirror",
		Long: `Resolve a catalog link, or a track described by --title, --author, --duration and --isrc,
and print the winning mirror together with every provider attempt as JSON. With --preview a
Spotify link resolves to its preview clip instead of a mirror.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && title == "" {
				return errors.New("either a url argument or --title is required")
			}
			if preview && len(args) == 0 {
				return errors.New("--preview requires a url argument")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			svcs, err := startServices(ctx)
			if err != nil {
				return err
			}
			defer svcs.close()

			var track core.SourceTrack
			if len(args) == 1 {
				if track, err = svcs.sourceTrack(ctx, args[0], preview); err != nil {
					return fmt.Errorf("failed to resolve link: %w", err)
				}
			} else {
				track = core.SourceTrack{Title: title, Author: author, Duration: duration, ISRC: isrc}
				if track.Author == "" {
					track.Author = core.UnknownAuthor
				}
			}

			if track.IsPreview {
				return resolvePreview(ctx, svcs, track)
			}

			resolution, err := svcs.resolver.ResolveDetailed(ctx, track)
			if err != nil && !errors.Is(err, mirror.ErrTrackNotFound) {
				return err
			}
			if printErr := printJSON(resolution); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Track title")
	cmd.Flags().StringVar(&author, "author", "", "Track author")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Track duration (e.g. 3m25s)")
	cmd.Flags().StringVar(&isrc, "isrc", "", "Track ISRC")
	cmd.Flags().BoolVar(&preview, "preview", false, "Resolve the track's preview clip instead of a mirror")

	return cmd
}

func resolvePreview(ctx context.Context, svcs *services, track core.SourceTrack) error {
	if track.PreviewURL == "" {
		return mirror.ErrNoPreviewURL
	}
	loaded, err := svcs.resolver.Load(ctx, track.PreviewURL)
	if err != nil {
		return fmt.Errorf("failed to load preview: %w", err)
	}
	return printJSON(mirror.Resolution{Track: loaded, Provider: track.PreviewURL, Attempts: []mirror.Attempt{}})
}

func newPlayCmd() *cobra.Command {
	var (
		guildID string
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "play <link or text>...",
		Short: "Play catalog tracks and playlists on a guild player",
		Long: `Queue every given catalog link (Spotify playlists are expanded) and play the mirrors one
after another on the guild's Lavalink player. Tracks without a mirror are reported and skipped.

The bot must already be connected to a voice channel of the guild, and its voice state and
voice server updates must reach Lavalink through the process that owns the gateway session.
Without them Lavalink sends no track end events; each track then counts as finished 15 seconds
after its length has passed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.Parse(guildID)
			if err != nil {
				return fmt.Errorf("invalid guild ID: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			svcs, err := startServices(ctx)
			if err != nil {
				return err
			}
			defer svcs.close()

			links := text.ExtractLinks(strings.Join(args, " "))
			if len(links) == 0 {
				return errors.New("no catalog links found in arguments")
			}

			tracks, err := svcs.expand(ctx, links, preview)
			if err != nil {
				return err
			}

			player := svcs.audio.Player(id)
			queue := playback.NewQueue(player, logger, playback.WithResultCallback(printResult))
			for _, track := range tracks {
				queue.Enqueue(mirror.NewMirroredTrack(track, svcs.resolver))
			}

			results, err := queue.Run(ctx)
			failed := 0
			for _, result := range results {
				if result.Failed() {
					failed++
				}
			}
			logger.Info("Queue finished",
				zap.Int("played", len(results)-failed),
				zap.Int("failed", failed),
				zap.Int("remaining", queue.Len()))

			if errors.Is(err, context.Canceled) {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
				defer stopCancel()
				if stopErr := player.Stop(stopCtx); stopErr != nil {
					logger.Warn("Failed to stop player", zap.Error(stopErr))
				}
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&guildID, "guild-id", "", "Guild whose player is used")
	cmd.Flags().BoolVar(&preview, "preview", false, "Play Spotify preview clips instead of mirrors")
	_ = cmd.MarkFlagRequired("guild-id")

	return cmd
}

func newSearchCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the Spotify catalog",
		Long: `Search Spotify for tracks and print them as JSON. With --resolve every result is resolved
to its mirror and printed together with the provider attempts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			svcs, err := startServices(ctx)
			if err != nil {
				return err
			}
			defer svcs.close()

			if svcs.spotify == nil {
				return errors.New("search needs --spotify-client-id")
			}

			tracks, err := svcs.spotify.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !resolve {
				return printJSON(tracks)
			}

			type searchResult struct {
				Source     core.SourceTrack   `json:"source"`
				Resolution *mirror.Resolution `json:"resolution,omitempty"`
				Error      string             `json:"error,omitempty"`
			}
			results := make([]searchResult, 0, len(tracks))
			for _, track := range tracks {
				res, err := svcs.resolver.ResolveDetailed(ctx, track)
				if err != nil && !errors.Is(err, mirror.ErrTrackNotFound) {
					return err
				}
				result := searchResult{Source: track, Resolution: &res}
				if err != nil {
					result.Error = err.Error()
				}
				results = append(results, result)
			}
			return printJSON(results)
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "Resolve every result to its mirror")

	return cmd
}

func startServices(ctx context.Context) (*services, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return initializeServices(ctx)
}

// expand turns links into source tracks, expanding Spotify playlists.
func (s *services) expand(ctx context.Context, links []string, preview bool) ([]core.SourceTrack, error) {
	var tracks []core.SourceTrack
	for _, link := range links {
		if playlistID, ok := spotifycatalog.ExtractPlaylistID(link); ok {
			if s.spotify == nil {
				return nil, errors.New("spotify playlists need --spotify-client-id")
			}
			playlist, err := s.spotify.PlaylistTracks(ctx, playlistID, preview)
			if err != nil {
				return nil, fmt.Errorf("failed to load playlist %s: %w", playlistID, err)
			}
			tracks = append(tracks, playlist...)
			continue
		}

		track, err := s.sourceTrack(ctx, link, preview)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", link, err)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func printResult(result playback.Result) {
	if result.Failed() {
		fmt.Printf("%3d  %-40s  skipped: %v\n", result.Index+1, result.Title, result.Err)
		return
	}
	fmt.Printf("%3d  %-40s  %s (%s)\n", result.Index+1, result.Title, result.Track.Info.Title, result.Track.Info.SourceName)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
