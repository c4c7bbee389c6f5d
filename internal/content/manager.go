package content

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohammadalshikh/orbit/internal/portfolio"
)

// ErrNotPublished is the readiness failure before the first publish.
var ErrNotPublished = errors.New("content: no document published yet")

// Snapshot is one published document. Treat Doc as read-only.
type Snapshot struct {
	Doc      *portfolio.Document
	Meta     Meta
	LoadedAt time.Time
}

type Manager struct {
	// mu orders writers so versions never go backwards; readers only load.
	mu       sync.Mutex
	active   atomic.Pointer[Snapshot]
	revision atomic.Uint64

	// OnPublish is called after every publish, used for metrics.
	OnPublish func(Snapshot)
}

func NewManager() *Manager { return &Manager{} }

// Publish makes a copy of doc the active snapshot and bumps the version.
func (m *Manager) Publish(doc *portfolio.Document, source Source) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.next(doc.Clone(), source)
	m.setLocked(snap)
	return snap
}

// SetLogs republishes the active document with its visit count set to n,
// keeping the source. It reports false when nothing is published or the
// count is unchanged.
func (m *Manager) SetLogs(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.active.Load()
	if cur == nil || cur.Doc == nil || cur.Doc.Logs == n {
		return false
	}
	doc := cur.Doc.Clone()
	doc.Logs = n
	m.setLocked(m.next(doc, cur.Meta.Source))
	return true
}

// next builds the snapshot for doc with a fresh version. doc must already
// be a private copy.
func (m *Manager) next(doc *portfolio.Document, source Source) Snapshot {
	return Snapshot{
		Doc: doc,
		Meta: Meta{
			Version: strconv.FormatUint(m.revision.Add(1), 10),
			Hash:    doc.Hash(),
			Source:  source,
		},
		LoadedAt: time.Now().UTC(),
	}
}

// Set stores a copy of s as-is. LoadedAt defaults to now.
func (m *Manager) Set(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(s)
}

func (m *Manager) setLocked(s Snapshot) {
	cp := s
	if cp.LoadedAt.IsZero() {
		cp.LoadedAt = time.Now().UTC()
	}
	m.active.Store(&cp)
	if m.OnPublish != nil {
		m.OnPublish(cp)
	}
}

// Get returns the active snapshot; ok is false until a document is published.
func (m *Manager) Get() (*Snapshot, bool) {
	s := m.active.Load()
	return s, s != nil && s.Doc != nil
}

// ReadyErr backs the readiness check.
func (m *Manager) ReadyErr() error {
	if _, ok := m.Get(); !ok {
		return ErrNotPublished
	}
	return nil
}

func (m *Manager) current() Snapshot {
	if s := m.active.Load(); s != nil {
		return *s
	}
	return Snapshot{Meta: Meta{Source: SourceUnknown}}
}

// ContentVersion and ContentHash feed the X-Content-* response headers.
func (m *Manager) ContentVersion() string { return m.current().Meta.Version }

func (m *Manager) ContentHash() string { return m.current().Meta.Hash }

func (m *Manager) Source() Source { return m.current().Meta.Source }

// LoadedAt is when the active snapshot was published, or zero.
func (m *Manager) LoadedAt() time.Time { return m.current().LoadedAt }
