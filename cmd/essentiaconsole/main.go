package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/essentiactl/internal/amp"
	"github.com/danmuck/essentiactl/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	defaults := amp.DefaultConfig()
	serialPort := flag.String("port", defaults.Transport.Path, "serial device")
	baud := flag.Int("baud", defaults.Transport.BaudRate, "baud rate")
	cmdDelay := flag.Duration("cmd-delay", defaults.Queue.CommandDelay, "pause before each command write")
	timeout := flag.Duration("timeout", defaults.Queue.ReplyTimeout, "reply timeout per command")
	sweep := flag.Bool("sweep", false, "query tone status of zones 1-6 and exit")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := defaults
	cfg.Transport.Path = *serialPort
	cfg.Transport.BaudRate = *baud
	cfg.Queue.CommandDelay = *cmdDelay
	cfg.Queue.ReplyTimeout = *timeout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *sweep); err != nil {
		fmt.Fprintf(os.Stderr, "essentiaconsole: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg amp.Config, sweepOnly bool) error {
	a, err := amp.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("essentiaconsole close")
		}
	}()

	// outlives the queue reply timeout
	sh := newShell(a, os.Stdout, 2*cfg.Queue.ReplyTimeout+time.Second)
	if sweepOnly {
		return sh.sweep(ctx, nil)
	}

	ed := newLineEditor(os.Stdin)
	defer ed.Close()
	if ed.Interactive() {
		fmt.Fprintf(os.Stdout, "connected to %s, type help for commands\n", cfg.Transport.Path)
	}
	return repl(ctx, ed, sh, a.Done())
}

type lineReader interface {
	ReadLine(prompt string) (string, error)
}

// repl runs console lines until quit, end of input, or a lost device.
func repl(ctx context.Context, in lineReader, sh *shell, lost <-chan struct{}) error {
	for {
		select {
		case <-lost:
			return errors.New("serial device lost")
		case <-ctx.Done():
			return nil
		default:
		}
		l, err := in.ReadLine("amp> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := sh.Exec(ctx, l)
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}
