package callout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

const (
	// Entries waiting longer than this are flagged high priority on the
	// display. Recomputed on every refresh, never cached.
	HighPriorityWait = 30 * time.Minute

	ServingPageSize = 4
	WaitingPageSize = 6
	RotateInterval  = 8 * time.Second
)

// Announcement is one audio/visual call-out: emitted at most once per queue
// entry for its single serving episode.
type Announcement struct {
	QueueEntryID     uuid.UUID `json:"queue_entry_id"`
	ServicePointName string    `json:"service_point_name"`
	ConfirmationCode string    `json:"confirmation_code"`
	Priority         Priority  `json:"priority"`
}

// DisplayEntry is one row on the public display.
type DisplayEntry struct {
	QueueEntryID     uuid.UUID  `json:"queue_entry_id"`
	ConfirmationCode string     `json:"confirmation_code"`
	ServicePointName string     `json:"service_point_name"`
	Priority         Priority   `json:"priority"`
	CalledAt         *time.Time `json:"called_at,omitempty"`
}

// DisplayState is the visible page of the display plus paging positions.
type DisplayState struct {
	Serving      []DisplayEntry `json:"serving"`
	Waiting      []DisplayEntry `json:"waiting"`
	ServingPage  int            `json:"serving_page"`
	ServingPages int            `json:"serving_pages"`
	WaitingPage  int            `json:"waiting_page"`
	WaitingPages int            `json:"waiting_pages"`
	UpdatedAt    time.Time      `json:"updated_at"`
	// Stale marks that the last snapshot fetch failed and the display is
	// showing retained state rather than a blank screen.
	Stale bool `json:"stale"`
}

// Engine derives announcements and display pages from periodically supplied
// queue snapshots. It never mutates queue state: it is a read-only reactive
// layer over whatever the poller hands it.
type Engine struct {
	mu sync.Mutex

	// IDs observed in serving status on the previous cycle. An entry is
	// announced exactly when it appears here for the first time with a
	// non-nil called_at, which makes repeated polling idempotent and keeps
	// transfers (which preserve called_at) silent.
	prevServing map[uuid.UUID]struct{}

	servingAll []DisplayEntry
	waitingAll []DisplayEntry

	servingPage  int
	waitingPage  int
	servingPages int
	waitingPages int

	updatedAt time.Time
	stale     bool

	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{
		prevServing: make(map[uuid.UUID]struct{}),
		now:         time.Now,
	}
}

// Evaluate consumes one full snapshot of a branch's non-terminal queue
// entries and returns the announcements this cycle produced. pointNames maps
// service point IDs to their display names.
func (e *Engine) Evaluate(entries []*model.QueueEntry, pointNames map[uuid.UUID]string) []Announcement {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	serving := make([]DisplayEntry, 0, len(entries))
	waiting := make([]DisplayEntry, 0, len(entries))
	currentServing := make(map[uuid.UUID]struct{})

	var announcements []Announcement
	for _, entry := range entries {
		display := DisplayEntry{
			QueueEntryID:     entry.ID,
			ConfirmationCode: entry.ConfirmationCode,
			ServicePointName: pointNames[entry.ServicePointID],
			Priority:         classify(entry, now),
			CalledAt:         entry.CalledAt,
		}

		switch entry.Status {
		case model.QueueStatusServing:
			serving = append(serving, display)
			currentServing[entry.ID] = struct{}{}

			if entry.CalledAt == nil {
				continue
			}
			if _, seen := e.prevServing[entry.ID]; !seen {
				announcements = append(announcements, Announcement{
					QueueEntryID:     entry.ID,
					ServicePointName: display.ServicePointName,
					ConfirmationCode: entry.ConfirmationCode,
					Priority:         display.Priority,
				})
			}
		case model.QueueStatusWaiting:
			waiting = append(waiting, display)
		}
	}

	e.prevServing = currentServing
	e.servingAll = serving
	e.waitingAll = waiting

	servingPages := pageCount(len(serving), ServingPageSize)
	waitingPages := pageCount(len(waiting), WaitingPageSize)
	if servingPages != e.servingPages {
		e.servingPage = 0
	}
	if waitingPages != e.waitingPages {
		e.waitingPage = 0
	}
	e.servingPages = servingPages
	e.waitingPages = waitingPages

	e.updatedAt = now
	e.stale = false

	return announcements
}

// Rotate advances both visible windows by one page, wrapping modulo the
// page count. Driven by a fixed timer, independent of the poll cadence.
func (e *Engine) Rotate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.servingPages > 0 {
		e.servingPage = (e.servingPage + 1) % e.servingPages
	}
	if e.waitingPages > 0 {
		e.waitingPage = (e.waitingPage + 1) % e.waitingPages
	}
}

// MarkStale records a failed snapshot fetch. The retained display state
// stays visible; only the stale flag flips.
func (e *Engine) MarkStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale = true
}

// Snapshot returns the currently visible display page.
func (e *Engine) Snapshot() DisplayState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return DisplayState{
		Serving:      page(e.servingAll, e.servingPage, ServingPageSize),
		Waiting:      page(e.waitingAll, e.waitingPage, WaitingPageSize),
		ServingPage:  e.servingPage,
		ServingPages: e.servingPages,
		WaitingPage:  e.waitingPage,
		WaitingPages: e.waitingPages,
		UpdatedAt:    e.updatedAt,
		Stale:        e.stale,
	}
}

func classify(entry *model.QueueEntry, now time.Time) Priority {
	if now.Sub(entry.CreatedAt) > HighPriorityWait {
		return PriorityHigh
	}
	return PriorityNormal
}

func pageCount(n, size int) int {
	if n == 0 {
		return 0
	}
	return (n + size - 1) / size
}

func page(entries []DisplayEntry, idx, size int) []DisplayEntry {
	start := idx * size
	if start >= len(entries) {
		return nil
	}
	end := start + size
	if end > len(entries) {
		end = len(entries)
	}
	out := make([]DisplayEntry, end-start)
	copy(out, entries[start:end])
	return out
}
