package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Memory is an in-process store. It backs tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]memoryDoc
	messages []string

	// ReadErr and WriteErr, when set, are returned by the next calls.
	ReadErr  error
	WriteErr error

	Reads  int
	Writes int
}

type memoryDoc struct {
	content string
	version int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryDoc)}
}

// Put stores content unconditionally.
func (m *Memory) Put(id, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.docs[id]
	m.docs[id] = memoryDoc{content: content, version: d.version + 1}
}

// Content returns the current content of id.
func (m *Memory) Content(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id].content
}

// Messages returns the change messages of all successful writes.
func (m *Memory) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

func (m *Memory) Read(_ context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", id, ErrNotFound)
	}
	return &Document{Content: d.content, Version: strconv.Itoa(d.version)}, nil
}

func (m *Memory) Write(_ context.Context, id, content, expectedVersion, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("write %s: %w", id, ErrNotFound)
	}
	if strconv.Itoa(d.version) != expectedVersion {
		return fmt.Errorf("write %s: %w", id, ErrConflict)
	}
	m.docs[id] = memoryDoc{content: content, version: d.version + 1}
	m.messages = append(m.messages, message)
	return nil
}

func (m *Memory) Create(_ context.Context, id, content, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return fmt.Errorf("create %s: %w", id, ErrConflict)
	}
	m.docs[id] = memoryDoc{content: content, version: 1}
	m.messages = append(m.messages, message)
	return nil
}
