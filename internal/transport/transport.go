// Package transport owns the amplifier's serial connection.
//
// Ownership boundary:
// - opening the RS-232 device (8N1)
// - full writes of encoded commands
// - the read loop feeding framed lines to a Sink
// - reopening the device after the read side fails
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/danmuck/essentiactl/internal/protocol/line"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

var (
	ErrOpen         = errors.New("transport: open failed")
	ErrNotConnected = errors.New("transport: not connected")
)

// OpenError reports a device that could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("transport: open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// Config describes the serial device.
type Config struct {
	Path     string
	BaudRate int
	Limits   line.Limits
	Backoff  Backoff
	// MaxReopenAttempts bounds consecutive reopen failures. Zero retries forever.
	MaxReopenAttempts int
}

func DefaultConfig() Config {
	return Config{
		Path:     "/dev/ttyUSB0",
		BaudRate: 9600,
		Limits:   line.DefaultLimits(),
		Backoff:  DefaultBackoff(),
	}
}

// Port is the part of serial.Port the channel uses.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens the device described by cfg.
type Opener func(cfg Config) (Port, error)

// Sink receives framed lines and read-side failures.
type Sink interface {
	OnLine(line string)
	OnReadError(err error)
}

// SerialOpener opens cfg.Path with go.bug.st/serial at 8N1.
func SerialOpener(cfg Config) (Port, error) {
	return serial.Open(cfg.Path, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Channel is the single owner of the open port.
type Channel struct {
	cfg  Config
	open Opener

	writeMu sync.Mutex

	mu     sync.RWMutex
	port   Port
	closed bool
}

// Open opens the serial device once. Failure is an *OpenError.
func Open(cfg Config) (*Channel, error) {
	return OpenWith(cfg, SerialOpener)
}

func OpenWith(cfg Config, open Opener) (*Channel, error) {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultConfig().BaudRate
	}
	if cfg.Limits.MaxLineBytes <= 0 {
		cfg.Limits = line.DefaultLimits()
	}
	port, err := open(cfg)
	if err != nil {
		return nil, &OpenError{Path: cfg.Path, Err: err}
	}
	log.Info().Str("path", cfg.Path).Int("baud", cfg.BaudRate).Msg("transport.Channel.Open port open")
	return &Channel{cfg: cfg, open: open, port: port}, nil
}

// Write transmits p in full.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.RLock()
	port := c.port
	c.mu.RUnlock()
	if port == nil {
		return 0, ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	written := 0
	for written < len(p) {
		n, err := port.Write(p[written:])
		written += n
		if err != nil {
			return written, fmt.Errorf("transport: write %s: %w", c.cfg.Path, err)
		}
		if n == 0 {
			return written, fmt.Errorf("transport: write %s: %w", c.cfg.Path, io.ErrShortWrite)
		}
	}
	return written, nil
}

// Run feeds lines to sink until ctx ends. A failed read side is reported to
// sink, the port is closed and reopened with backoff.
func (c *Channel) Run(ctx context.Context, sink Sink) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		c.mu.RLock()
		port := c.port
		c.mu.RUnlock()
		if port == nil {
			if c.isClosed() {
				return nil
			}
			return ErrNotConnected
		}

		err := c.readLoop(ctx, port, sink)
		if ctx.Err() != nil || c.isClosed() {
			return nil
		}
		log.Error().Err(err).Str("path", c.cfg.Path).Msg("transport.Channel.Run read failed")
		sink.OnReadError(err)
		c.detach(port)

		if err := c.reopen(ctx, rng); err != nil {
			return err
		}
		if ctx.Err() != nil || c.isClosed() {
			return nil
		}
	}
}

func (c *Channel) readLoop(ctx context.Context, port Port, sink Sink) error {
	stop := context.AfterFunc(ctx, func() {
		_ = port.Close()
	})
	defer stop()

	lr := line.NewReader(port, c.cfg.Limits)
	for {
		l, err := lr.ReadLine()
		if errors.Is(err, line.ErrLineTooLong) {
			log.Warn().Err(err).Int("max", c.cfg.Limits.MaxLineBytes).Msg("transport.Channel.readLoop framing")
			sink.OnReadError(err)
			continue
		}
		if err != nil {
			return fmt.Errorf("transport: read %s: %w", c.cfg.Path, err)
		}
		log.Trace().Str("line", l).Msg("transport.Channel.readLoop")
		sink.OnLine(l)
	}
}

func (c *Channel) reopen(ctx context.Context, rng *rand.Rand) error {
	for attempt := 1; ; attempt++ {
		delay := c.cfg.Backoff.Delay(attempt, rng)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if c.isClosed() {
			return nil
		}

		port, err := c.open(c.cfg)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Str("path", c.cfg.Path).Msg("transport.Channel.reopen failed")
			if c.cfg.MaxReopenAttempts > 0 && attempt >= c.cfg.MaxReopenAttempts {
				return &OpenError{Path: c.cfg.Path, Err: err}
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = port.Close()
			return nil
		}
		c.port = port
		c.mu.Unlock()
		log.Info().Int("attempt", attempt).Str("path", c.cfg.Path).Msg("transport.Channel.reopen port open")
		return nil
	}
}

func (c *Channel) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Channel) detach(port Port) {
	c.mu.Lock()
	if c.port == port {
		c.port = nil
	}
	c.mu.Unlock()
	_ = port.Close()
}

// Connected reports whether a port is currently open.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.port != nil
}

// Close releases the port. Run returns once its read unblocks.
func (c *Channel) Close() error {
	c.mu.Lock()
	port := c.port
	c.port = nil
	c.closed = true
	c.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}
