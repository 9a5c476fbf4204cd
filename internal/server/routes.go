package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/essentiactl/internal/amp"
	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/danmuck/essentiactl/internal/queue"
	"github.com/danmuck/essentiactl/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type powerRequest struct {
	On *bool `json:"on" binding:"required"`
}

type muteRequest struct {
	Muted *bool `json:"muted" binding:"required"`
}

type levelRequest struct {
	Level *int `json:"level" binding:"required"`
}

type valueRequest struct {
	Value *int `json:"value" binding:"required"`
}

type sourceRequest struct {
	Source *int `json:"source" binding:"required"`
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/zones", s.listZones)
	r.GET("/zones/:zone", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		st, err := s.amp.ZoneStatus(ctx, zone)
		return statusBody(st), err
	}))
	r.GET("/zones/:zone/tone", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		ts, err := s.amp.ZoneTone(ctx, zone)
		return toneBody(ts), err
	}))

	w := r.Group("/", s.requireToken())
	w.PUT("/zones/:zone/power", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		var req powerRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		call := s.amp.TurnOffZone
		if *req.On {
			call = s.amp.TurnOnZone
		}
		ok, err := call(ctx, zone)
		return confirmBody(zone, ok), err
	}))
	w.PUT("/zones/:zone/mute", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		var req muteRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		call := s.amp.UnmuteZone
		if *req.Muted {
			call = s.amp.MuteZone
		}
		ok, err := call(ctx, zone)
		return confirmBody(zone, ok), err
	}))
	w.PUT("/zones/:zone/volume", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		var req levelRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		ok, err := s.amp.SetVolume(ctx, zone, *req.Level)
		return confirmBody(zone, ok), err
	}))
	w.PUT("/zones/:zone/bass", s.toneSetter(s.amp.SetBass))
	w.PUT("/zones/:zone/treble", s.toneSetter(s.amp.SetTreble))
	w.PUT("/zones/:zone/source", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		var req sourceRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		ok, err := s.amp.SetSource(ctx, zone, *req.Source)
		return confirmBody(zone, ok), err
	}))

	r.GET("/zones/:zone/on", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		on, err := s.zones.IsOn(ctx, zone)
		return gin.H{"zone": zone, "on": on}, err
	}))
	w.PUT("/zones/:zone/on", s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		var req powerRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		err := s.zones.SetOn(ctx, zone, *req.On)
		return gin.H{"zone": zone, "on": *req.On}, err
	}))

	r.GET("/sources/:source/on", s.sourceHandler(func(ctx context.Context, c *gin.Context, source int) (any, error) {
		on, err := s.sources.IsOn(source)
		return gin.H{"source": source, "on": on}, err
	}))
	w.PUT("/sources/:source/on", s.sourceHandler(func(ctx context.Context, c *gin.Context, source int) (any, error) {
		var req powerRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		err := s.sources.SetOn(ctx, source, *req.On)
		return gin.H{"source": source, "on": *req.On}, err
	}))
}

func (s *Server) health(c *gin.Context) {
	connected := s.amp.Connected()
	status := "ok"
	code := http.StatusOK
	if !connected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":      status,
		"connected":   connected,
		"queue_depth": s.amp.QueueDepth(),
		"uptime":      time.Since(s.appeared).String(),
		"service":     s.cfg.Name,
		"version":     Version,
	})
}

// listZones queries each configured zone in order; a failing zone is reported
// inline and does not fail the listing.
func (s *Server) listZones(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()
	zones := make([]gin.H, 0, len(s.cfg.Zones))
	for _, zone := range s.cfg.Zones {
		st, err := s.amp.ZoneStatus(ctx, zone)
		if err != nil {
			zones = append(zones, gin.H{"zone": zone, "error": err.Error()})
			continue
		}
		zones = append(zones, statusBody(st))
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

type handlerFunc func(ctx context.Context, c *gin.Context, id int) (any, error)

func (s *Server) zoneHandler(fn handlerFunc) gin.HandlerFunc {
	return s.idHandler("zone", fn)
}

func (s *Server) sourceHandler(fn handlerFunc) gin.HandlerFunc {
	return s.idHandler("source", fn)
}

func (s *Server) idHandler(param string, fn handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param(param))
		if err != nil {
			respondError(c, fmt.Errorf("%w: %s %q is not a number", protocol.ErrInvalidArgument, param, c.Param(param)))
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
		defer cancel()
		body, err := fn(ctx, c, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

func (s *Server) toneSetter(set func(context.Context, int, int) (bool, error)) gin.HandlerFunc {
	return s.zoneHandler(func(ctx context.Context, c *gin.Context, zone int) (any, error) {
		var req valueRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		ok, err := set(ctx, zone, *req.Value)
		return confirmBody(zone, ok), err
	})
}

func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidArgument, err)
	}
	return nil
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}

// StatusFor maps an amplifier error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, amp.ErrUnknownZone), errors.Is(err, amp.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, protocol.ErrParse):
		return http.StatusBadGateway
	case errors.Is(err, queue.ErrStalled),
		errors.Is(err, queue.ErrWrite),
		errors.Is(err, queue.ErrRead),
		errors.Is(err, queue.ErrClosed),
		errors.Is(err, transport.ErrNotConnected),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func statusBody(st protocol.ZoneStatus) gin.H {
	return gin.H{
		"zone":   st.Zone,
		"power":  string(st.Power),
		"on":     st.On(),
		"source": st.Source,
		"group":  st.Group,
		"volume": gin.H{
			"level":         st.Volume.Level,
			"muted":         st.Volume.Muted,
			"external_mute": st.Volume.ExternalMute,
			"raw":           st.Volume.Raw,
		},
	}
}

func toneBody(ts protocol.ZoneToneStatus) gin.H {
	return gin.H{
		"zone":         ts.Zone,
		"bass":         ts.Bass,
		"treble":       ts.Treble,
		"treble_known": ts.TrebleKnown,
		"source":       ts.Source,
	}
}

func confirmBody(zone int, confirmed bool) gin.H {
	return gin.H{"zone": zone, "confirmed": confirmed}
}
