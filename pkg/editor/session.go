// Package editor implements the synchronization coordinator that keeps the
// table, text, flowchart, XML and visual representations of a process
// consistent while the user edits any one of them.
//
// Every edit carries an explicit origin. Downstream consumers receive the
// origin with each update and skip re-applying changes to the editor the
// update came from, which removes feedback loops structurally instead of
// suppressing them with a timed reentrancy window.
package editor

import (
	goerrors "errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/procflow/procflow/pkg/bpmn"
	"github.com/procflow/procflow/pkg/dot"
	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/flow"
	"github.com/procflow/procflow/pkg/flow/build"
	"github.com/procflow/procflow/pkg/flow/layout"
	"github.com/procflow/procflow/pkg/mermaid"
	"github.com/procflow/procflow/pkg/table"
	"github.com/procflow/procflow/pkg/visual"
)

// Origin identifies which editor produced an edit.
type Origin string

// Edit origins.
const (
	OriginTable  Origin = "table"
	OriginText   Origin = "text"
	OriginVisual Origin = "visual"
)

// State is the coordinator's rebuild state.
type State string

// Coordinator states. A session is rebuilding from the moment an edit is
// accepted until its update notification has returned.
const (
	StateIdle       State = "idle"
	StateRebuilding State = "rebuilding"
)

// ErrReentrantEdit is returned when an edit arrives while a rebuild is in
// flight, which only happens when an update handler feeds its own update
// back into the session.
var ErrReentrantEdit = goerrors.New("edit rejected: rebuild in flight")

// DefaultDebounce is the delay applied to visual edits before
// regenerating text and XML, coalescing intermediate drag frames.
const DefaultDebounce = 300 * time.Millisecond

// Snapshot is the complete, mutually consistent set of representations
// after a successful rebuild. Snapshots are replaced wholesale; a failed
// rebuild leaves the previous snapshot untouched.
type Snapshot struct {
	Rows     []table.Row
	Graph    *flow.Graph
	Text     string
	Mermaid  string
	XML      string
	Visual   visual.Model
	Warnings []build.Warning
}

// Update is delivered to the session's update handler after each rebuild.
type Update struct {
	Origin   Origin
	Snapshot Snapshot
}

// Options configures a session.
type Options struct {
	// Layout controls canvas geometry. Zero values take defaults.
	Layout layout.Options

	// Debounce delays visual-edit rebuilds. Zero means DefaultDebounce;
	// negative disables debouncing (rebuild immediately).
	Debounce time.Duration

	// OnUpdate receives every successful rebuild. Optional.
	OnUpdate func(Update)

	Logger *log.Logger
}

// Session coordinates edits across representations. Methods are safe for
// use from the debounce timer goroutine; edits themselves are expected
// from a single caller at a time, matching the event-driven UI they serve.
type Session struct {
	id       string
	mu       sync.Mutex
	state    State
	snap     Snapshot
	pending  *visual.Model // visual edit awaiting debounce
	timer    *time.Timer
	debounce time.Duration
	layout   layout.Options
	onUpdate func(Update)
	logger   *log.Logger
}

// NewSession creates a coordinator with an empty snapshot.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	debounce := opts.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	if debounce < 0 {
		debounce = 0
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		state:    StateIdle,
		debounce: debounce,
		layout:   opts.Layout,
		onUpdate: opts.OnUpdate,
		logger:   logger.With("session", id),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current rebuild state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the last successfully built snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// ApplyTable rebuilds everything from a new set of rows: builder, layout,
// then all generators. Rows are the source of truth, so this is also the
// path collaborator responses re-enter through.
func (s *Session) ApplyTable(rows []table.Row) (Snapshot, error) {
	if err := s.begin(); err != nil {
		return s.Snapshot(), err
	}
	defer s.finish()

	g, warnings, err := build.FromRows(rows)
	if err != nil {
		s.logger.Warn("table rebuild failed", "err", err)
		return s.Snapshot(), err
	}
	snap, err := s.derive(g, rows, warnings)
	if err != nil {
		return s.Snapshot(), err
	}
	s.commit(snap, OriginTable)
	return snap, nil
}

// ApplyText parses edited notation text and rebuilds downstream
// representations. On a parse error the previous snapshot stays in place;
// the caller shows the error next to the text instead of clearing the
// canvas.
func (s *Session) ApplyText(text string) (Snapshot, error) {
	if err := s.begin(); err != nil {
		return s.Snapshot(), err
	}
	defer s.finish()

	g, err := dot.Parse(text)
	if err != nil {
		s.logger.Warn("text rebuild failed", "err", err)
		return s.Snapshot(), errors.Wrap(errors.ErrCodeParse, err, "apply text edit")
	}

	warnings := build.Normalize(g)
	rows := table.FromGraph(g)
	snap, err := s.derive(g, rows, warnings)
	if err != nil {
		return s.Snapshot(), err
	}
	s.commit(snap, OriginText)
	return snap, nil
}

// ApplyVisual records an edit from the canvas. Structural edits (add,
// delete, reconnect) rebuild immediately including a fresh layout pass;
// label and position edits are debounced and regenerate text without
// re-running layout, so dragging a node does not reflow the diagram.
func (s *Session) ApplyVisual(m visual.Model, structural bool) error {
	s.mu.Lock()
	if s.state == StateRebuilding {
		s.mu.Unlock()
		return ErrReentrantEdit
	}
	if structural || s.debounce == 0 {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.pending = nil
		s.mu.Unlock()
		_, err := s.rebuildVisual(m, structural)
		return err
	}

	s.pending = &m
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if _, err := s.Flush(); err != nil {
			s.logger.Warn("visual rebuild failed", "err", err)
		}
	})
	s.mu.Unlock()
	return nil
}

// Flush applies any debounced visual edit now. It is a no-op when nothing
// is pending.
func (s *Session) Flush() (Snapshot, error) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	m := s.pending
	s.pending = nil
	s.mu.Unlock()

	if m == nil {
		return s.Snapshot(), nil
	}
	return s.rebuildVisual(*m, false)
}

func (s *Session) rebuildVisual(m visual.Model, structural bool) (Snapshot, error) {
	if err := s.begin(); err != nil {
		return s.Snapshot(), err
	}
	defer s.finish()

	g, err := visual.ToGraph(m)
	if err != nil {
		s.logger.Warn("visual rebuild failed", "err", err)
		return s.Snapshot(), errors.Wrap(errors.ErrCodeInvalidInput, err, "apply visual edit")
	}

	if structural {
		warnings := build.Normalize(g)
		rows := table.FromGraph(g)
		snap, err := s.derive(g, rows, warnings)
		if err != nil {
			return s.Snapshot(), err
		}
		s.commit(snap, OriginVisual)
		return snap, nil
	}

	// Pure label/position edit: keep the user's coordinates, regenerate
	// the textual artifacts only.
	rows := table.FromGraph(g)
	snap, err := s.artifacts(g, rows, nil)
	if err != nil {
		return s.Snapshot(), err
	}
	snap.Visual = m
	s.commit(snap, OriginVisual)
	return snap, nil
}

// derive runs layout and all generators against a repaired graph.
func (s *Session) derive(g *flow.Graph, rows []table.Row, warnings []build.Warning) (Snapshot, error) {
	placed := layout.Apply(g, s.layout)
	snap, err := s.artifacts(placed, rows, warnings)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Visual = visual.FromGraph(placed)
	return snap, nil
}

func (s *Session) artifacts(g *flow.Graph, rows []table.Row, warnings []build.Warning) (Snapshot, error) {
	xmlText, err := bpmn.Generate(g)
	if err != nil {
		s.logger.Warn("generation failed, keeping previous output", "err", err)
		return Snapshot{}, err
	}
	return Snapshot{
		Rows:     rows,
		Graph:    g,
		Text:     dot.Generate(g),
		Mermaid:  mermaid.Generate(g),
		XML:      xmlText,
		Warnings: warnings,
	}, nil
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRebuilding {
		return ErrReentrantEdit
	}
	s.state = StateRebuilding
	return nil
}

func (s *Session) finish() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

// commit replaces the snapshot and notifies the update handler. The
// handler runs while the session is still rebuilding, so an update that
// tries to edit its own session gets ErrReentrantEdit instead of looping.
func (s *Session) commit(snap Snapshot, origin Origin) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Debug("rebuilt",
		"origin", origin,
		"nodes", snap.Graph.NodeCount(),
		"edges", snap.Graph.EdgeCount(),
		"warnings", len(snap.Warnings))

	if s.onUpdate != nil {
		s.onUpdate(Update{Origin: origin, Snapshot: snap})
	}
}
