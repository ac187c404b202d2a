package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadnetzer/hardlinkable/internal/event"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

func runPresenter(t *testing.T, p Presenter, events ...event.Event) {
	t.Helper()
	ch := make(chan event.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	require.NoError(t, p.Run(ch))
}

func TestQuietPresenterSilent(t *testing.T) {
	p := NewPresenter(Config{Quiet: true})
	runPresenter(t, p, event.Event{Type: event.LinkFailed, Error: errors.New("boom")})
}

func TestPlainPresenterVerboseFeed(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPresenter(Config{
		Writer:    &out,
		ErrWriter: &errOut,
		Stats:     stats.NewCollector(),
		Verbosity: 2,
	})
	runPresenter(t, p,
		event.Event{Type: event.PairFound, Path: "/a", Other: "/b"},
		event.Event{Type: event.LinkDone, Path: "/a", Other: "/b"},
	)

	assert.Contains(t, out.String(), "linkable      : /a")
	assert.Contains(t, out.String(), "linked        : /a")
}

func TestPlainPresenterLinkFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPresenter(Config{
		Writer:    &out,
		ErrWriter: &errOut,
		Stats:     stats.NewCollector(),
	})
	runPresenter(t, p, event.Event{
		Type: event.LinkFailed, Path: "/a", Other: "/b", Error: errors.New("eperm"),
	})

	assert.Contains(t, errOut.String(), "link failed")
	assert.Contains(t, errOut.String(), "eperm")
}
