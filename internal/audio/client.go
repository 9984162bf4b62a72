// Package audio connects the mirror resolver to a Lavalink node through disgolink.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"lavasrc/internal/core"
	"lavasrc/internal/mirror"
)

// ErrNoNode is reported when no Lavalink node is available.
var ErrNoNode = errors.New("no available Lavalink node")

// Client loads tracks from the best available Lavalink node.
type Client struct {
	link   disgolink.Client
	logger *zap.Logger

	mu      sync.Mutex
	waiters map[snowflake.ID][]chan lavalink.TrackEndReason
}

// New creates a disgolink client and connects the configured node.
func New(ctx context.Context, cfg core.LavalinkConfig, logger *zap.Logger) (*Client, error) {
	userID, err := snowflake.Parse(cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	c := &Client{
		logger:  logger.Named("audio"),
		waiters: make(map[snowflake.ID][]chan lavalink.TrackEndReason),
	}

	link := disgolink.New(userID,
		disgolink.WithListenerFunc(c.onTrackEnd),
		disgolink.WithListenerFunc(c.onTrackException),
	)
	c.link = link

	node, err := link.AddNode(ctx, disgolink.NodeConfig{
		Name:     cfg.NodeName,
		Address:  cfg.Address,
		Password: cfg.Password,
		Secure:   cfg.Secure,
	})
	if err != nil {
		link.Close()
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	c.logger.Info("Connected to Lavalink",
		zap.String("node", node.Config().Name),
		zap.String("address", cfg.Address))

	return c, nil
}

// LoadItem implements mirror.Loader.
func (c *Client) LoadItem(ctx context.Context, query string, handler disgolink.AudioLoadResultHandler) {
	node := c.link.BestNode()
	if node == nil {
		handler.LoadFailed(ErrNoNode)
		return
	}

	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		handler.LoadFailed(fmt.Errorf("failed to load tracks: %w", err))
		return
	}

	Dispatch(result, handler)
}

// Ready reports whether a node can serve loads.
func (c *Client) Ready() bool {
	return c.link.BestNode() != nil
}

// Player returns the player of a guild.
func (c *Client) Player(guildID snowflake.ID) *GuildPlayer {
	return &GuildPlayer{client: c, guildID: guildID}
}

// waitEnd registers for the next track end of guildID.
func (c *Client) waitEnd(guildID snowflake.ID) <-chan lavalink.TrackEndReason {
	ch := make(chan lavalink.TrackEndReason, 1)
	c.mu.Lock()
	c.waiters[guildID] = append(c.waiters[guildID], ch)
	c.mu.Unlock()
	return ch
}

func (c *Client) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	c.logger.Debug("Track ended",
		zap.String("guild", player.GuildID().String()),
		zap.String("title", event.Track.Info.Title),
		zap.String("reason", string(event.Reason)))

	// The replaced track ends after the next one was requested.
	if event.Reason == lavalink.TrackEndReasonReplaced {
		return
	}
	c.notifyEnd(player.GuildID(), event.Reason)
}

func (c *Client) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	c.logger.Warn("Track exception",
		zap.String("guild", player.GuildID().String()),
		zap.String("error", event.Exception.Message))
}

func (c *Client) notifyEnd(guildID snowflake.ID, reason lavalink.TrackEndReason) {
	c.mu.Lock()
	waiters := c.waiters[guildID]
	delete(c.waiters, guildID)
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- reason
	}
}

// Close disconnects all nodes.
func (c *Client) Close() {
	c.link.Close()
}

// Dispatch reports a load result to exactly one handler method.
func Dispatch(result *lavalink.LoadResult, handler disgolink.AudioLoadResultHandler) {
	if result == nil {
		handler.NoMatches()
		return
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		handler.TrackLoaded(data)
	case lavalink.Playlist:
		handler.PlaylistLoaded(data)
	case lavalink.Search:
		handler.SearchResultLoaded(data)
	case lavalink.Empty:
		handler.NoMatches()
	case lavalink.Exception:
		handler.LoadFailed(fmt.Errorf("%s (severity %v)", data.Message, data.Severity))
	default:
		handler.NoMatches()
	}
}

var _ mirror.Loader = (*Client)(nil)
