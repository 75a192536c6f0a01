// Package source feeds the store from a log file or standard input, one
// decoded entry per line. File inputs are tailed: once the current contents
// are consumed the source waits for the file to grow and continues, detecting
// truncation by the file shrinking.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"github.com/sievelabs/sieve/internal/model"
)

// Stdin is the input name selecting standard input.
const Stdin = "-"

// Config controls where and how the source reads.
type Config struct {
	// Input is a file path, or "-" for standard input.
	Input string
	// Watch tails the file for appended data. No effect for stdin.
	Watch bool
	// PollInterval is the re-read cadence when fsnotify is unavailable.
	PollInterval time.Duration
}

// Source reads lines from the configured input and hands every decoded entry
// to the push callback.
type Source struct {
	cfg    Config
	push   func(model.Entry)
	parser lineParser
	errLog *rate.Limiter
}

// New creates a source pushing decoded entries through push.
func New(cfg Config, push func(model.Entry)) *Source {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Source{
		cfg:  cfg,
		push: push,
		// a broken input should not flood the process log
		errLog: rate.NewLimiter(rate.Every(5*time.Second), 3),
	}
}

// Name returns a human-readable name of the input, for logs and the status
// feed.
func (s *Source) Name() string {
	if s.cfg.Input == Stdin {
		return "stdin"
	}
	return s.cfg.Input
}

// Run reads the input until ctx is cancelled. A stream input (stdin, or a
// file without watch) that reaches EOF stays open so the buffered window
// remains queryable until shutdown.
func (s *Source) Run(ctx context.Context) error {
	if s.cfg.Input == Stdin {
		return s.runStream(ctx, os.Stdin)
	}
	if s.cfg.Watch {
		return s.runWatch(ctx)
	}

	f, err := os.Open(s.cfg.Input)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(s.cfg.Input, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip input: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return s.runStream(ctx, r)
}

// runStream consumes r line by line until EOF, then idles until shutdown so
// the buffered window stays queryable. A failed read is handled the same way
// as in the watch path: logged, with the window kept open rather than tearing
// down the process. Reading happens on a separate goroutine so cancellation
// is never stuck behind a blocking read.
func (s *Source) runStream(ctx context.Context, r io.Reader) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			s.push(s.parser.parse(line))
		case err := <-readErr:
			if !errors.Is(err, io.EOF) {
				s.logError("Cannot read input: %v", err)
			}
			<-ctx.Done()
			return nil
		}
	}
}

// runWatch tails the input file: read to EOF, wait for a change
// notification, read again. The file handle is kept open across waits; a
// shrinking file means truncation and rereads from the start.
func (s *Source) runWatch(ctx context.Context) error {
	notify := s.newNotifier()
	defer notify.Close()

	var (
		file     *os.File
		rd       *bufio.Reader
		prevSize int64
		pending  []byte
	)
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	for ctx.Err() == nil {
		if file == nil {
			f, err := os.Open(s.cfg.Input)
			if err != nil {
				s.logError("Cannot open input file: %v", err)
				if err := notify.Wait(ctx); err != nil {
					s.logError("Watch error: %v", err)
				}
				continue
			}
			file = f
			rd = bufio.NewReader(f)
			prevSize = 0
			pending = pending[:0]
		}

		info, err := os.Stat(s.cfg.Input)
		if err != nil {
			s.logError("Cannot stat input file: %v", err)
		} else {
			if info.Size() < prevSize {
				// file truncated, reread from the start
				if _, err := file.Seek(0, io.SeekStart); err != nil {
					return fmt.Errorf("seek after truncation: %w", err)
				}
				rd.Reset(file)
				pending = pending[:0]
			}
			prevSize = info.Size()
		}

		if err := s.drainLines(rd, &pending); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logError("Cannot read input file: %v", err)
			}
			if err := notify.Wait(ctx); err != nil {
				s.logError("Watch error: %v", err)
			}
		}
	}
	return nil
}

// drainLines reads complete lines until the reader is exhausted, keeping any
// trailing partial line in pending so a half-written line is never ingested.
func (s *Source) drainLines(rd *bufio.Reader, pending *[]byte) error {
	for {
		chunk, err := rd.ReadBytes('\n')
		*pending = append(*pending, chunk...)
		if err != nil {
			return err
		}
		s.push(s.parser.parse(*pending))
		*pending = (*pending)[:0]
	}
}

func (s *Source) logError(format string, args ...any) {
	if s.errLog.Allow() {
		log.Printf(format, args...)
	}
}

// notifier wakes the tail loop when the input file may have new data.
type notifier interface {
	Wait(ctx context.Context) error
	Close() error
}

// newNotifier prefers an fsnotify watch on the input file and falls back to
// interval polling when a watch cannot be established.
func (s *Source) newNotifier() notifier {
	w, err := fsnotify.NewWatcher()
	if err == nil {
		if err = w.Add(s.cfg.Input); err != nil {
			w.Close()
		}
	}
	if err != nil {
		log.Printf("Cannot watch input file, falling back to polling every %v: %v", s.cfg.PollInterval, err)
		return &pollNotifier{interval: s.cfg.PollInterval}
	}
	return &watchNotifier{watcher: w}
}

type watchNotifier struct {
	watcher *fsnotify.Watcher
}

func (n *watchNotifier) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case _, ok := <-n.watcher.Events:
		if !ok {
			return errors.New("watcher closed")
		}
		return nil
	case err, ok := <-n.watcher.Errors:
		if !ok {
			return errors.New("watcher closed")
		}
		return err
	}
}

func (n *watchNotifier) Close() error {
	return n.watcher.Close()
}

type pollNotifier struct {
	interval time.Duration
}

func (n *pollNotifier) Wait(ctx context.Context) error {
	timer := time.NewTimer(n.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return nil
}

func (n *pollNotifier) Close() error { return nil }
