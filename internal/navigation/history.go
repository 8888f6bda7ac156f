// Package navigation mirrors an external back/forward history mechanism
// with internal position/length counters and the page each entry shows.
//
// The counters are a model of external truth, not the source of it: every
// external navigation notification must be attributed to exactly one cause.
// A programmatic back/forward updates the counters optimistically and then
// consumes the confirmation the external mechanism fires, so a
// self-initiated move is never double-counted as a user navigation.
package navigation

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/domain"
	"github.com/mercuryex/walletcore/internal/observer"
)

// Topic and event for history changes on the observer graph.
const (
	Topic       = "navigation"
	EventChange = "change"
)

// DefaultConfirmTimeout bounds the wait for the external confirmation of a
// self-initiated navigation.
const DefaultConfirmTimeout = 2 * time.Second

// ErrDesync reports that the external mechanism never confirmed a
// self-initiated navigation and the counters were re-read from it.
var ErrDesync = errors.New("navigation desync")

// ErrNoEntry is returned when there is nothing to go back or forward to.
var ErrNoEntry = errors.New("no history entry")

// Browser is the external history collaborator. Back and Forward request a
// navigation; State reports its actual current position and length, used
// only to recover from a missed confirmation.
type Browser interface {
	Back()
	Forward()
	State() (position, length int)
}

// State is the payload of EventChange.
type State struct {
	Position int
	Length   int
	Page     domain.Page
}

// History tracks the navigation position against the external mechanism,
// remembering the page shown at every position. Listeners are notified
// outside the internal lock, so they may query the history freely.
type History struct {
	mu             sync.Mutex
	browser        Browser
	graph          *observer.Graph
	l              *zap.Logger
	position       int
	length         int
	pages          []domain.Page
	awaiting       bool
	confirmTimeout time.Duration
	timer          *time.Timer
}

// New creates a history starting at position 0 on the overview page.
func New(browser Browser, graph *observer.Graph, logger *zap.Logger, confirmTimeout time.Duration) *History {
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}
	return &History{
		browser:        browser,
		graph:          graph,
		l:              logger,
		pages:          []domain.Page{{Kind: domain.PageOverview}},
		confirmTimeout: confirmTimeout,
	}
}

// OnNavigate handles the external navigation notification for page. A
// user-driven navigation appends to the history and discards any forward
// entries; the confirmation of a self-initiated move is consumed without
// counting.
func (h *History) OnNavigate(page domain.Page) {
	h.mu.Lock()
	if h.awaiting {
		h.awaiting = false
		h.stopTimerLocked()
		h.mu.Unlock()
		return
	}

	h.position++
	h.length = h.position
	h.pages = append(h.pages[:h.position], page)
	state := h.stateLocked()
	h.mu.Unlock()

	h.graph.Emit(Topic, EventChange, state)
}

// Back moves one entry back and asks the external mechanism to follow.
func (h *History) Back() error {
	h.mu.Lock()
	if h.position <= 0 {
		h.mu.Unlock()
		return errors.Wrap(ErrNoEntry, "back")
	}
	h.position--
	h.beginAwaitLocked()
	state := h.stateLocked()
	h.mu.Unlock()

	h.graph.Emit(Topic, EventChange, state)
	h.browser.Back()
	return nil
}

// Forward moves one entry forward and asks the external mechanism to follow.
func (h *History) Forward() error {
	h.mu.Lock()
	if h.position >= h.length {
		h.mu.Unlock()
		return errors.Wrap(ErrNoEntry, "forward")
	}
	h.position++
	h.beginAwaitLocked()
	state := h.stateLocked()
	h.mu.Unlock()

	h.graph.Emit(Topic, EventChange, state)
	h.browser.Forward()
	return nil
}

// HasBack reports whether a back entry exists.
func (h *History) HasBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position > 0
}

// HasForward reports whether a forward entry exists.
func (h *History) HasForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position < h.length
}

// Position returns the current index into the history.
func (h *History) Position() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

// Length returns the number of history entries.
func (h *History) Length() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.length
}

// CurrentPage returns the page shown at the current position.
func (h *History) CurrentPage() domain.Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pageLocked()
}

// Close stops any pending confirmation timer.
func (h *History) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTimerLocked()
	h.awaiting = false
}

func (h *History) beginAwaitLocked() {
	h.awaiting = true
	h.stopTimerLocked()
	h.timer = time.AfterFunc(h.confirmTimeout, h.resync)
}

func (h *History) stateLocked() State {
	return State{Position: h.position, Length: h.length, Page: h.pageLocked()}
}

func (h *History) pageLocked() domain.Page {
	if h.position < len(h.pages) {
		return h.pages[h.position]
	}
	return h.pages[len(h.pages)-1]
}

// resync recovers from a confirmation that never arrived by adopting the
// external mechanism's actual state.
func (h *History) resync() {
	h.mu.Lock()
	if !h.awaiting {
		h.mu.Unlock()
		return
	}
	h.awaiting = false

	pos, length := h.browser.State()
	h.position = pos
	h.length = length
	for len(h.pages) <= length {
		h.pages = append(h.pages, h.pages[len(h.pages)-1])
	}
	state := h.stateLocked()
	h.mu.Unlock()

	h.l.Warn("external confirmation missed, adopting external state",
		zap.Error(ErrDesync),
		zap.Int("position", pos),
		zap.Int("length", length))
	h.graph.Emit(Topic, EventChange, state)
}

func (h *History) stopTimerLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
