package amp

import (
	"context"
	"fmt"

	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Submitter queues one command and waits for its reply line.
type Submitter interface {
	Do(ctx context.Context, cmd protocol.Command) (string, error)
}

// Client issues one command per call and decodes its reply.
type Client struct {
	q Submitter
}

func NewClient(q Submitter) *Client {
	return &Client{q: q}
}

// ZoneStatus sends CONSR for zone.
func (c *Client) ZoneStatus(ctx context.Context, zone int) (protocol.ZoneStatus, error) {
	return c.status(ctx, protocol.StatusQuery, zone)
}

// ZoneTone sends SETSR for zone.
func (c *Client) ZoneTone(ctx context.Context, zone int) (protocol.ZoneToneStatus, error) {
	return c.tone(ctx, protocol.ToneQuery, zone)
}

func (c *Client) IsZoneOn(ctx context.Context, zone int) (bool, error) {
	st, err := c.ZoneStatus(ctx, zone)
	if err != nil {
		return false, err
	}
	return st.On(), nil
}

// TurnOnZone reports whether the reply shows the zone powered.
func (c *Client) TurnOnZone(ctx context.Context, zone int) (bool, error) {
	st, err := c.status(ctx, protocol.ZoneOn, zone)
	if err != nil {
		return false, err
	}
	return st.Power == protocol.PowerOn, nil
}

// TurnOffZone reports whether the reply shows the zone off.
func (c *Client) TurnOffZone(ctx context.Context, zone int) (bool, error) {
	st, err := c.status(ctx, protocol.ZoneOff, zone)
	if err != nil {
		return false, err
	}
	return st.Power == protocol.PowerOff, nil
}

func (c *Client) IsZoneMuted(ctx context.Context, zone int) (bool, error) {
	st, err := c.ZoneStatus(ctx, zone)
	if err != nil {
		return false, err
	}
	return st.Volume.Muted, nil
}

// MuteZone reports whether the reply carries the MT sentinel.
func (c *Client) MuteZone(ctx context.Context, zone int) (bool, error) {
	st, err := c.status(ctx, protocol.MuteOn, zone)
	if err != nil {
		return false, err
	}
	return st.Volume.Muted, nil
}

// UnmuteZone reports whether the reply no longer carries MT.
func (c *Client) UnmuteZone(ctx context.Context, zone int) (bool, error) {
	st, err := c.status(ctx, protocol.MuteOff, zone)
	if err != nil {
		return false, err
	}
	return !st.Volume.Muted, nil
}

// SetVolume reports whether the reply shows the requested level.
func (c *Client) SetVolume(ctx context.Context, zone, level int) (bool, error) {
	st, err := c.status(ctx, func(z int) (protocol.Command, error) { return protocol.SetVolume(z, level) }, zone)
	if err != nil {
		return false, err
	}
	v := st.Volume
	return !v.Muted && !v.ExternalMute && v.Level == level, nil
}

func (c *Client) SetBass(ctx context.Context, zone, bass int) (bool, error) {
	ts, err := c.tone(ctx, func(z int) (protocol.Command, error) { return protocol.SetBass(z, bass) }, zone)
	if err != nil {
		return false, err
	}
	return ts.Bass == bass, nil
}

// SetTreble reports false when the reply carries only the treble sign.
func (c *Client) SetTreble(ctx context.Context, zone, treble int) (bool, error) {
	ts, err := c.tone(ctx, func(z int) (protocol.Command, error) { return protocol.SetTreble(z, treble) }, zone)
	if err != nil {
		return false, err
	}
	return ts.TrebleKnown && ts.Treble == treble, nil
}

func (c *Client) SetSource(ctx context.Context, zone, source int) (bool, error) {
	st, err := c.status(ctx, func(z int) (protocol.Command, error) { return protocol.SetSource(z, source) }, zone)
	if err != nil {
		return false, err
	}
	return st.Source == source, nil
}

func (c *Client) status(ctx context.Context, build func(int) (protocol.Command, error), zone int) (protocol.ZoneStatus, error) {
	line, cmd, err := c.roundTrip(ctx, build, zone)
	if err != nil {
		return protocol.ZoneStatus{}, err
	}
	st, err := protocol.DecodeStatus(line)
	if err != nil {
		log.Warn().Err(err).Str("verb", string(cmd.Verb)).Int("zone", zone).Msg("amp.Client.status decode failed")
		return protocol.ZoneStatus{}, fmt.Errorf("amp: %s zone %d: %w", cmd.Verb, zone, err)
	}
	return st, nil
}

func (c *Client) tone(ctx context.Context, build func(int) (protocol.Command, error), zone int) (protocol.ZoneToneStatus, error) {
	line, cmd, err := c.roundTrip(ctx, build, zone)
	if err != nil {
		return protocol.ZoneToneStatus{}, err
	}
	ts, err := protocol.DecodeTone(line)
	if err != nil {
		log.Warn().Err(err).Str("verb", string(cmd.Verb)).Int("zone", zone).Msg("amp.Client.tone decode failed")
		return protocol.ZoneToneStatus{}, fmt.Errorf("amp: %s zone %d: %w", cmd.Verb, zone, err)
	}
	return ts, nil
}

func (c *Client) roundTrip(ctx context.Context, build func(int) (protocol.Command, error), zone int) (string, protocol.Command, error) {
	cmd, err := build(zone)
	if err != nil {
		return "", cmd, err
	}
	line, err := c.q.Do(ctx, cmd)
	if err != nil {
		return "", cmd, fmt.Errorf("amp: %s zone %d: %w", cmd.Verb, zone, err)
	}
	log.Debug().Str("verb", string(cmd.Verb)).Int("zone", zone).Str("reply", line).Msg("amp.Client.roundTrip")
	return line, cmd, nil
}
