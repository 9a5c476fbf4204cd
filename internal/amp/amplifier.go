package amp

import (
	"context"
	"sync"

	"github.com/danmuck/essentiactl/internal/queue"
	"github.com/danmuck/essentiactl/internal/transport"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Transport transport.Config
	Queue     queue.Config
}

func DefaultConfig() Config {
	return Config{
		Transport: transport.DefaultConfig(),
		Queue:     queue.DefaultConfig(),
	}
}

// Amplifier owns the open channel, its queue and the client issuing commands
// through them.
type Amplifier struct {
	*Client

	ch *transport.Channel
	q  *queue.Queue

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	runErr error
	closed bool
}

// Open opens the serial device and starts the reader. An open failure is a
// *transport.OpenError.
func Open(ctx context.Context, cfg Config) (*Amplifier, error) {
	return OpenWith(ctx, cfg, transport.SerialOpener)
}

func OpenWith(ctx context.Context, cfg Config, open transport.Opener) (*Amplifier, error) {
	ch, err := transport.OpenWith(cfg.Transport, open)
	if err != nil {
		return nil, err
	}
	q := queue.New(ch, cfg.Queue)
	runCtx, cancel := context.WithCancel(ctx)
	a := &Amplifier{
		Client: NewClient(q),
		ch:     ch,
		q:      q,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.run(runCtx)
	log.Info().
		Str("path", cfg.Transport.Path).
		Dur("cmd_delay", cfg.Queue.CommandDelay).
		Dur("reply_timeout", cfg.Queue.ReplyTimeout).
		Msg("amp.Amplifier.Open ready")
	return a, nil
}

func (a *Amplifier) run(ctx context.Context) {
	defer close(a.done)
	err := a.ch.Run(ctx, a.q)
	if err != nil {
		log.Error().Err(err).Msg("amp.Amplifier.run reader stopped")
		a.mu.Lock()
		a.runErr = err
		a.mu.Unlock()
		// nothing can answer queued commands once the reader is gone
		a.q.Close()
	}
}

// Done closes when the reader stops.
func (a *Amplifier) Done() <-chan struct{} {
	return a.done
}

// Err reports why the reader stopped, nil after a clean Close.
func (a *Amplifier) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runErr
}

func (a *Amplifier) Connected() bool {
	return a.ch.Connected()
}

func (a *Amplifier) QueueDepth() int {
	return a.q.Depth()
}

// Close rejects pending commands, releases the port and waits for the reader.
func (a *Amplifier) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.q.Close()
	err := a.ch.Close()
	a.cancel()
	<-a.done
	log.Info().Msg("amp.Amplifier.Close closed")
	return err
}
