package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/chadnetzer/hardlinkable/internal/event"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

// Presenter consumes engine events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer
	ErrWriter  io.Writer
	Stats      *stats.Collector
	IsTTY      bool
	Quiet      bool
	Verbosity  int
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	return &plainPresenter{
		w:          cfg.Writer,
		errW:       cfg.ErrWriter,
		stats:      cfg.Stats,
		verbosity:  cfg.Verbosity,
		noProgress: cfg.NoProgress || !cfg.IsTTY,
	}
}

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan event.Event) error {
	//nolint:revive // empty-block: intentionally draining event channel
	for range events {
	}
	return nil
}

// plainPresenter prints a line per interesting event, gated by verbosity,
// and, when progress is enabled, a periodic progress line to the error
// writer.
type plainPresenter struct {
	w          io.Writer
	errW       io.Writer
	stats      *stats.Collector
	verbosity  int
	noProgress bool
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearProgress()
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.ExistingLink:
		if p.verbosity > 2 {
			fmt.Fprintf(p.w, "existing link : %s\n", ev.Other)
		}
	case event.ComparisonDone:
		if p.verbosity > 2 {
			fmt.Fprintf(p.w, "compared      : %s\n              : %s\n", ev.Path, ev.Other)
		}
	case event.PairFound:
		if p.verbosity > 1 {
			fmt.Fprintf(p.w, "linkable      : %s\n           to : %s\n", ev.Path, ev.Other)
		}
	case event.LinkDone:
		if p.verbosity > 0 {
			fmt.Fprintf(p.w, "linked        : %s\n           to : %s\n", ev.Path, ev.Other)
		}
	case event.LinkFailed:
		fmt.Fprintf(p.errW, "link failed   : %s -> %s: %v\n", ev.Path, ev.Other, ev.Error)
	}
}

func (p *plainPresenter) printProgress() {
	if p.noProgress {
		return
	}
	s := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "\r%d dirs, %d files, %d comparisons",
		s.Dirs, s.Files, s.Comparisons)
}

func (p *plainPresenter) clearProgress() {
	if p.noProgress {
		return
	}
	fmt.Fprintf(p.errW, "\r\033[K")
}
