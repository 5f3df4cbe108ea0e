// Package store persists named processes. Only the table rows are stored;
// every other representation is recomputed on load, keeping the table the
// single source of truth. Backends: in-memory for single-session use and
// tests, MongoDB for the API server.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/table"
)

// Process is one saved process table.
type Process struct {
	Name      string      `json:"name" bson:"_id"`
	Rows      []table.Row `json:"rows" bson:"rows"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" bson:"updated_at"`
}

// Store persists processes by name. Save overwrites an existing process
// of the same name; Get returns ErrCodeNotFound for unknown names.
type Store interface {
	Save(ctx context.Context, name string, rows []table.Row) (Process, error)
	Get(ctx context.Context, name string) (Process, error)
	List(ctx context.Context) ([]Process, error)
	Delete(ctx context.Context, name string) error
	Close(ctx context.Context) error
}

// MemoryStore keeps processes in a map. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	processes map[string]Process
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{processes: map[string]Process{}}
}

// Save stores rows under name, preserving CreatedAt on overwrite.
func (s *MemoryStore) Save(ctx context.Context, name string, rows []table.Row) (Process, error) {
	if err := errors.ValidateProcessName(name); err != nil {
		return Process{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p := Process{
		Name:      name,
		Rows:      append([]table.Row(nil), rows...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, ok := s.processes[name]; ok {
		p.CreatedAt = existing.CreatedAt
	}
	s.processes[name] = p
	return p, nil
}

// Get returns the process saved under name.
func (s *MemoryStore) Get(ctx context.Context, name string) (Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.processes[name]
	if !ok {
		return Process{}, errors.New(errors.ErrCodeNotFound, "process %q not found", name)
	}
	p.Rows = append([]table.Row(nil), p.Rows...)
	return p, nil
}

// List returns all processes sorted by name.
func (s *MemoryStore) List(ctx context.Context) ([]Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Process, 0, len(s.processes))
	for _, p := range s.processes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a process. Deleting an unknown name is an error so the
// API can answer 404 truthfully.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processes[name]; !ok {
		return errors.New(errors.ErrCodeNotFound, "process %q not found", name)
	}
	delete(s.processes, name)
	return nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
