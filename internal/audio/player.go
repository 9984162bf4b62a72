package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"lavasrc/internal/mirror"
)

// ErrTrackLoadFailed is returned by Wait when Lavalink could not stream the track.
var ErrTrackLoadFailed = errors.New("track failed to load")

// endSlack is how long Wait waits past a track's length for its end event.
const endSlack = 15 * time.Second

// GuildPlayer plays resolved mirrors on one guild's Lavalink player.
type GuildPlayer struct {
	client  *Client
	guildID snowflake.ID
	ended   <-chan lavalink.TrackEndReason
	// limit bounds Wait; zero waits for the end event only.
	limit time.Duration
}

// Play implements mirror.Player.
func (p *GuildPlayer) Play(ctx context.Context, track lavalink.Track) error {
	player := p.client.link.Player(p.guildID)

	// Register before starting so a short track cannot end unobserved.
	p.ended = p.client.waitEnd(p.guildID)
	p.limit = 0
	if !track.Info.IsStream && track.Info.Length > 0 {
		p.limit = time.Duration(track.Info.Length)*time.Millisecond + endSlack
	}

	// Use WithEncodedTrack to avoid userData:null issue
	if err := player.Update(ctx, lavalink.WithEncodedTrack(track.Encoded)); err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}

	p.client.logger.Debug("Playing mirror",
		zap.String("guild", p.guildID.String()),
		zap.String("title", track.Info.Title),
		zap.String("source", track.Info.SourceName))
	return nil
}

// Stop clears the current track.
func (p *GuildPlayer) Stop(ctx context.Context) error {
	if err := p.client.link.Player(p.guildID).Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// Wait blocks until the track started by the last Play ends. End events
// only arrive once the bot's voice state reaches Lavalink, so for tracks of
// known length Wait gives up endSlack after the track should have ended.
func (p *GuildPlayer) Wait(ctx context.Context) error {
	if p.ended == nil {
		return nil
	}

	var timeout <-chan time.Time
	if p.limit > 0 {
		timer := time.NewTimer(p.limit)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case reason := <-p.ended:
		p.ended = nil
		if reason == lavalink.TrackEndReasonLoadFailed {
			return ErrTrackLoadFailed
		}
		return nil
	case <-timeout:
		p.ended = nil
		p.client.logger.Warn("No track end event received, is the voice connection forwarded to Lavalink?",
			zap.String("guild", p.guildID.String()),
			zap.Duration("waited", p.limit))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ mirror.Player = (*GuildPlayer)(nil)
