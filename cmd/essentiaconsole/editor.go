package main

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const (
	historyFileName = ".essentiaconsole_history"
	historySize     = 500
)

// lineEditor reads console input with history on a terminal and falls back to
// plain line reads when stdin is piped.
type lineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
}

func newLineEditor(in *os.File) *lineEditor {
	if !term.IsTerminal(int(in.Fd())) {
		return &lineEditor{scanner: bufio.NewScanner(in)}
	}
	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath(),
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("essentiaconsole readline unavailable, using plain input")
		return &lineEditor{scanner: bufio.NewScanner(in)}
	}
	return &lineEditor{rl: rl}
}

// ReadLine returns io.EOF on end of input and on interrupt.
func (e *lineEditor) ReadLine(prompt string) (string, error) {
	if e.rl == nil {
		return e.scan()
	}
	e.rl.SetPrompt(prompt)
	l, err := e.rl.Readline()
	if err == readline.ErrInterrupt {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if trimmed := strings.TrimSpace(l); trimmed != "" {
		_ = e.rl.SaveToHistory(trimmed)
	}
	return l, nil
}

func (e *lineEditor) scan() (string, error) {
	if !e.scanner.Scan() {
		if err := e.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return e.scanner.Text(), nil
}

// Interactive reports whether input comes from a terminal.
func (e *lineEditor) Interactive() bool {
	return e.rl != nil
}

func (e *lineEditor) Close() error {
	if e.rl == nil {
		return nil
	}
	return e.rl.Close()
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}
