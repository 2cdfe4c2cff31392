// Package docstore keeps decoded uploads in memory until they expire.
package docstore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/docsight/internal/parser"
)

// Entry is one uploaded document with its decoded form.
type Entry struct {
	mu sync.Mutex

	ID         string
	Filename   string
	Size       int
	Doc        *parser.Document
	UploadedAt time.Time
	UpdatedAt  time.Time

	summary string
}

// NewEntry builds an entry for data, keyed by its content hash.
func NewEntry(filename string, data []byte, doc *parser.Document) *Entry {
	now := time.Now()
	return &Entry{
		ID:         ContentHashHex(data),
		Filename:   filename,
		Size:       len(data),
		Doc:        doc,
		UploadedAt: now,
		UpdatedAt:  now,
	}
}

// SetSummary stores the model summary of the document.
func (e *Entry) SetSummary(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summary = s
	e.UpdatedAt = time.Now()
}

// Summary returns the stored summary, or "" if none has been made.
func (e *Entry) Summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

func (e *Entry) touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.UpdatedAt = time.Now()
}

func (e *Entry) lastUsed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.UpdatedAt
}

// Info is a read-only, JSON-safe listing of an entry.
type Info struct {
	ID         string        `json:"doc_id"`
	Filename   string        `json:"filename"`
	Format     parser.Format `json:"format"`
	Size       int           `json:"size"`
	UploadedAt time.Time     `json:"uploaded_at"`
	HasSummary bool          `json:"has_summary"`
}

// Info returns a snapshot of the entry's metadata.
func (e *Entry) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Info{
		ID:         e.ID,
		Filename:   e.Filename,
		Format:     e.Doc.Format,
		Size:       e.Size,
		UploadedAt: e.UploadedAt,
		HasSummary: e.summary != "",
	}
}

// Store is a thread-safe in-memory document registry with TTL eviction.
// An entry's TTL restarts whenever it is read or updated.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	log     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ttl time.Duration, log *slog.Logger) *Store {
	return &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		log:     log.With("component", "docstore"),
	}
}

// Put stores an entry, replacing any entry with the same ID along with its
// summary.
func (s *Store) Put(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
}

// Get returns the entry for id, or nil.
func (s *Store) Get(id string) *Entry {
	s.mu.Lock()
	e := s.entries[id]
	s.mu.Unlock()
	if e != nil {
		e.touch()
	}
	return e
}

// Delete removes an entry and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// List returns every entry's metadata, newest upload first.
func (s *Store) List() []Info {
	s.mu.Lock()
	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup removes expired entries and returns how many it removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastUsed()) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Start runs Cleanup every interval until ctx is done or Stop is called.
func (s *Store) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					s.log.Info("expired documents removed", "count", n, "remaining", s.Len())
				}
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it to exit.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// ContentHashHex returns the first 16 hex characters of the SHA-256 of data.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}
