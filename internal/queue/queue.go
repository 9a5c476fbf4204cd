package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/essentiactl/internal/observability"
	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull = errors.New("queue: full")
	ErrClosed    = errors.New("queue: closed")
	ErrStalled   = errors.New("queue: reply timeout")
	ErrWrite     = errors.New("queue: transport write failed")
	ErrRead      = errors.New("queue: reply read failed")
)

const (
	OutcomeOK      = "ok"
	OutcomeWrite   = "write_error"
	OutcomeStalled = "stalled"
	OutcomeRead    = "read_error"
	OutcomeClosed  = "closed"
)

// Config defines dispatch pacing and limits.
type Config struct {
	// CommandDelay precedes every physical write, including the first.
	CommandDelay time.Duration
	// ReplyTimeout bounds the wait for a written command's reply. Zero waits
	// forever. Replies carry no correlation, so a stalled command's reply that
	// arrives after the next write is paired with that next command.
	ReplyTimeout time.Duration
	// StallGrace is added to the delay before the first write after a stall.
	// Late replies landing in that window are dropped as unsolicited.
	StallGrace time.Duration
	// MaxDepth bounds queued plus in-flight commands. Zero means unbounded.
	MaxDepth int
}

func DefaultConfig() Config {
	return Config{
		CommandDelay: 100 * time.Millisecond,
		ReplyTimeout: 2 * time.Second,
		StallGrace:   500 * time.Millisecond,
		MaxDepth:     64,
	}
}

// Result settles one submitted command.
type Result struct {
	Line string
	Err  error
}

// Pending is the completion handle for one submitted command.
type Pending struct {
	Command     protocol.Command
	SubmittedAt time.Time

	done chan Result
}

// Done receives exactly one Result when the command settles.
func (p *Pending) Done() <-chan Result {
	return p.done
}

// Wait blocks until the command settles or ctx ends. A cancelled wait does not
// withdraw the command; its reply is still consumed in order.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-p.done:
		return res.Line, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Queue serializes commands onto one writer and pairs replies by order.
//
// items[0] is the head. The head is either waiting out CommandDelay or, once
// inflight points at it, written and awaiting its reply.
type Queue struct {
	cfg Config
	w   io.Writer

	writeMu sync.Mutex

	mu       sync.Mutex
	items    []*Pending
	inflight *Pending
	timer    *time.Timer
	// quietUntil holds back dispatch after a stall.
	quietUntil time.Time
	seq        uint64
	closed     bool
}

func New(w io.Writer, cfg Config) *Queue {
	if cfg.CommandDelay < 0 {
		cfg.CommandDelay = 0
	}
	return &Queue{cfg: cfg, w: w}
}

// Submit appends cmd to the tail and returns its completion handle. When the
// queue was idle, dispatch of cmd is scheduled after CommandDelay.
func (q *Queue) Submit(cmd protocol.Command) (*Pending, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	if q.cfg.MaxDepth > 0 && len(q.items) >= q.cfg.MaxDepth {
		return nil, fmt.Errorf("%w: depth=%d", ErrQueueFull, len(q.items))
	}
	q.seq++
	cmd.ID = q.seq
	p := &Pending{
		Command:     cmd,
		SubmittedAt: time.Now(),
		done:        make(chan Result, 1),
	}
	q.items = append(q.items, p)
	observability.SetQueueDepth(len(q.items))
	log.Debug().
		Uint64("id", cmd.ID).
		Str("verb", string(cmd.Verb)).
		Int("zone", cmd.Zone).
		Int("depth", len(q.items)).
		Msg("queue.Queue.Submit")
	if len(q.items) == 1 {
		q.scheduleLocked()
	}
	return p, nil
}

// Do submits cmd and waits for its reply line.
func (q *Queue) Do(ctx context.Context, cmd protocol.Command) (string, error) {
	p, err := q.Submit(cmd)
	if err != nil {
		return "", err
	}
	return p.Wait(ctx)
}

// OnLine attributes line to the in-flight command. Lines arriving while
// nothing is written are dropped.
func (q *Queue) OnLine(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := q.inflight
	if p == nil {
		observability.RecordUnsolicitedLine()
		log.Warn().Str("line", line).Int("depth", len(q.items)).Msg("queue.Queue.OnLine unsolicited")
		return
	}
	log.Debug().Uint64("id", p.Command.ID).Str("line", line).Msg("queue.Queue.OnLine")
	q.settleLocked(p, Result{Line: line}, OutcomeOK)
}

// OnWriteError rejects the in-flight command and advances the queue.
func (q *Queue) OnWriteError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight == nil {
		log.Warn().Err(err).Msg("queue.Queue.OnWriteError nothing in flight")
		return
	}
	q.settleLocked(q.inflight, Result{Err: fmt.Errorf("%w: %w", ErrWrite, err)}, OutcomeWrite)
}

// OnReadError rejects the in-flight command whose reply could not be read.
func (q *Queue) OnReadError(err error) {
	observability.RecordReadError()
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight == nil {
		log.Warn().Err(err).Msg("queue.Queue.OnReadError nothing in flight")
		return
	}
	q.settleLocked(q.inflight, Result{Err: fmt.Errorf("%w: %w", ErrRead, err)}, OutcomeRead)
}

// Depth reports queued plus in-flight commands.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects every pending command and refuses new ones.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.stopTimerLocked()
	for _, p := range q.items {
		p.done <- Result{Err: ErrClosed}
		observability.RecordCommand(string(p.Command.Verb), OutcomeClosed, time.Since(p.SubmittedAt))
	}
	q.items = nil
	q.inflight = nil
	observability.SetQueueDepth(0)
}

func (q *Queue) scheduleLocked() {
	head := q.items[0]
	q.stopTimerLocked()
	delay := q.cfg.CommandDelay
	if quiet := time.Until(q.quietUntil); quiet > 0 {
		delay += quiet
	}
	q.timer = time.AfterFunc(delay, func() {
		q.dispatch(head)
	})
}

func (q *Queue) dispatch(p *Pending) {
	q.mu.Lock()
	if q.closed || len(q.items) == 0 || q.items[0] != p || q.inflight != nil {
		q.mu.Unlock()
		return
	}
	q.inflight = p
	q.mu.Unlock()

	q.writeMu.Lock()
	_, err := q.w.Write(p.Command.Bytes())
	q.writeMu.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight != p {
		// settled while the write was in progress
		return
	}
	if err != nil {
		log.Error().Err(err).Uint64("id", p.Command.ID).Str("verb", string(p.Command.Verb)).Msg("queue.Queue.dispatch write failed")
		q.settleLocked(p, Result{Err: fmt.Errorf("%w: %w", ErrWrite, err)}, OutcomeWrite)
		return
	}
	log.Debug().Uint64("id", p.Command.ID).Str("verb", string(p.Command.Verb)).Int("zone", p.Command.Zone).Msg("queue.Queue.dispatch written")
	if q.cfg.ReplyTimeout > 0 {
		q.stopTimerLocked()
		q.timer = time.AfterFunc(q.cfg.ReplyTimeout, func() {
			q.stall(p)
		})
	}
}

func (q *Queue) stall(p *Pending) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight != p {
		return
	}
	log.Warn().Uint64("id", p.Command.ID).Str("verb", string(p.Command.Verb)).Dur("timeout", q.cfg.ReplyTimeout).Msg("queue.Queue.stall")
	if q.cfg.StallGrace > 0 {
		q.quietUntil = time.Now().Add(q.cfg.StallGrace)
	}
	q.settleLocked(p, Result{Err: fmt.Errorf("%w: %s after %s", ErrStalled, p.Command, q.cfg.ReplyTimeout)}, OutcomeStalled)
}

// settleLocked completes the head command and schedules the next one.
func (q *Queue) settleLocked(p *Pending, res Result, outcome string) {
	q.stopTimerLocked()
	q.inflight = nil
	if len(q.items) > 0 && q.items[0] == p {
		q.items[0] = nil
		q.items = q.items[1:]
	}
	p.done <- res
	observability.RecordCommand(string(p.Command.Verb), outcome, time.Since(p.SubmittedAt))
	observability.SetQueueDepth(len(q.items))
	if len(q.items) > 0 {
		q.scheduleLocked()
	}
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}
