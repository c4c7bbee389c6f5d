package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/mohammadalshikh/orbit/internal/auth"
	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/portfolio"
	"github.com/mohammadalshikh/orbit/internal/store"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// Prompts passed to a ConfirmFunc.
const (
	PromptExitUnsaved = "You have unsaved changes. Are you sure you want to exit edit mode?"
	PromptUndo        = "Are you sure you want to undo all changes?"
)

// ConfirmFunc asks the user a yes/no question. A nil ConfirmFunc declines.
type ConfirmFunc func(prompt string) bool

// Always confirms every prompt.
func Always(string) bool { return true }

var (
	ErrNotEditing   = errors.New("session: not in edit mode")
	ErrBusy         = errors.New("session: another load or save is in progress")
	ErrClosed       = errors.New("session: closed")
	ErrSuperseded   = errors.New("session: result discarded after exit or close")
	ErrNoImageHost  = errors.New("session: no image host configured")
	ErrNotConnected = errors.New("session: remote store not configured")
)

// CommitFunc is told about every successful commit. remote is false when
// the commit only happened in memory.
type CommitFunc func(doc *portfolio.Document, remote bool)

type Options struct {
	// Store is the remote document store. When Remote is false it is never
	// called.
	Store  store.DocumentStore
	Images store.ImageHost
	Remote bool

	Verifier *auth.Verifier

	// Fallback supplies the document shown when the remote store is not
	// configured or fails. Defaults to portfolio.Sample.
	Fallback func() *portfolio.Document

	OnCommit CommitFunc
	Logger   log.Logger
	Now      func() time.Time
}

func (o *Options) setDefaults() {
	if o.Fallback == nil {
		o.Fallback = portfolio.Sample
	}
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Verifier == nil {
		o.Verifier = auth.NewVerifier("")
	}
}

// Session is the edit state of a single page load.
type Session struct {
	opts Options

	mu        sync.Mutex
	current   *portfolio.Document
	committed *portfolio.Document
	editMode  bool
	loading   bool
	connected bool
	closed    bool
	lastUsed  time.Time

	// epoch and base scope in-flight remote calls. Both are replaced when
	// edit mode is exited or the session is closed.
	epoch  uint64
	parent context.Context
	base   context.Context
	cancel context.CancelFunc
}

// New returns a session showing the fallback document. Call Load to fetch
// the remote one. parent bounds every remote call the session makes.
func New(parent context.Context, opts Options) *Session {
	opts.setDefaults()
	doc := opts.Fallback()
	s := &Session{
		opts:      opts,
		current:   doc,
		committed: doc.Clone(),
		lastUsed:  opts.Now(),
	}
	s.parent = parent
	s.base, s.cancel = context.WithCancel(parent)
	return s
}

// State is a point-in-time copy of a session.
type State struct {
	EditMode  bool                `json:"editMode"`
	Dirty     bool                `json:"dirty"`
	Loading   bool                `json:"loading"`
	Remote    bool                `json:"remote"`
	Connected bool                `json:"connected"`
	Logs      int                 `json:"logs"`
	Document  *portfolio.Document `json:"document"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		EditMode:  s.editMode,
		Dirty:     s.dirtyLocked(),
		Loading:   s.loading,
		Remote:    s.opts.Remote,
		Connected: s.connected,
		Logs:      s.current.Logs,
		Document:  s.current.Clone(),
	}
}

// IsDirty reports whether the working copy differs from the committed copy.
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

func (s *Session) dirtyLocked() bool {
	return !portfolio.Equal(s.current, s.committed)
}

// LastUsed returns when the session last handled an operation.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// activity returns LastUsed and whether the session is in edit mode.
func (s *Session) activity() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed, s.editMode
}

func (s *Session) touchLocked() { s.lastUsed = s.opts.Now() }

// opContextLocked derives a context that ends when either ctx or the session's
// current base context ends. Caller holds s.mu.
func (s *Session) opContextLocked(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.base, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// resetOpsLocked cancels in-flight remote calls and starts a new epoch.
func (s *Session) resetOpsLocked() {
	s.cancel()
	s.epoch++
	s.loading = false
	if !s.closed {
		s.base, s.cancel = context.WithCancel(s.parent)
	}
}

// Load fetches the remote document. Any failure, or an unconfigured store,
// falls back to the bundled document without retrying. Afterwards the
// session is not dirty.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	s.touchLocked()
	epoch := s.epoch
	opCtx, done := s.opContextLocked(ctx)
	s.mu.Unlock()
	defer done()

	var (
		doc *portfolio.Document
		err error
	)
	if s.opts.Remote && s.opts.Store != nil {
		doc, err = s.opts.Store.Fetch(opCtx)
	} else {
		err = ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrSuperseded
	}
	s.loading = false
	if err != nil {
		if !errors.Is(err, ErrNotConnected) {
			s.opts.Logger.Warn(ctx, "fetch failed, showing bundled content", "error", err)
		}
		doc = s.opts.Fallback()
		s.connected = false
	} else {
		s.connected = true
	}
	s.current = doc
	s.committed = doc.Clone()
	return nil
}

// EnterEditMode switches to edit mode when password verifies.
func (s *Session) EnterEditMode(password string) bool {
	ok := s.opts.Verifier.Verify(password)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.touchLocked()
	if ok {
		s.editMode = true
	}
	return ok
}

// ExitEditMode leaves edit mode. With unsaved changes, confirm is asked
// PromptExitUnsaved; declining leaves everything as it was and returns
// false. Otherwise the working copy reverts to the committed copy and any
// in-flight load or save is abandoned.
func (s *Session) ExitEditMode(confirm ConfirmFunc) bool {
	s.mu.Lock()
	if !s.editMode {
		s.mu.Unlock()
		return true
	}
	dirty := s.dirtyLocked()
	asked := s.current
	s.mu.Unlock()

	if dirty && (confirm == nil || !confirm(PromptExitUnsaved)) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editMode {
		return true
	}
	// edits made while the prompt was open were never confirmed
	if s.current != asked && s.dirtyLocked() {
		return false
	}
	s.touchLocked()
	s.current = s.committed.Clone()
	s.editMode = false
	s.resetOpsLocked()
	return true
}

// UpdateSection replaces one top-level section of the working copy with the
// decoded value. Only the working copy changes.
func (s *Session) UpdateSection(section portfolio.Section, value json.RawMessage) error {
	return s.edit(func(doc *portfolio.Document, now time.Time) (*portfolio.Document, error) {
		return doc.WithSection(section, value, now)
	})
}

// AddItem puts a new item at the front of a list section of the working
// copy, with a fresh id.
func (s *Session) AddItem(section portfolio.Section, value json.RawMessage) error {
	return s.edit(func(doc *portfolio.Document, now time.Time) (*portfolio.Document, error) {
		return doc.WithItem(section, value, now)
	})
}

func (s *Session) edit(fn func(*portfolio.Document, time.Time) (*portfolio.Document, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.editMode {
		return ErrNotEditing
	}
	s.touchLocked()
	next, err := fn(s.current, s.opts.Now())
	if err != nil {
		return err
	}
	s.current = next
	return nil
}

// SaveResult describes a successful save.
type SaveResult struct {
	// LocalOnly is set when the remote store is not configured and the
	// working copy was only committed in memory.
	LocalOnly bool `json:"localOnly"`
}

// SaveChanges commits the working copy. Without a configured remote store
// this happens in memory only. Otherwise a snapshot of the working copy is
// saved remotely and becomes the committed copy on success; on failure the
// working copy is kept and the session stays dirty.
func (s *Session) SaveChanges(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SaveResult{}, ErrClosed
	}
	if !s.editMode {
		s.mu.Unlock()
		return SaveResult{}, ErrNotEditing
	}
	s.touchLocked()

	if !s.opts.Remote || s.opts.Store == nil {
		s.committed = s.current.Clone()
		snap := s.committed.Clone()
		s.mu.Unlock()
		s.notify(snap, false)
		return SaveResult{LocalOnly: true}, nil
	}

	if s.loading {
		s.mu.Unlock()
		return SaveResult{}, ErrBusy
	}
	s.loading = true
	snapshot := s.current.Clone()
	epoch := s.epoch
	opCtx, done := s.opContextLocked(ctx)
	s.mu.Unlock()
	defer done()

	err := s.opts.Store.Save(opCtx, snapshot)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return SaveResult{}, ErrSuperseded
	}
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		return SaveResult{}, xerrors.Wrap(err, "save document")
	}
	s.committed = snapshot
	s.connected = true
	snap := snapshot.Clone()
	s.mu.Unlock()

	s.notify(snap, true)
	return SaveResult{}, nil
}

func (s *Session) notify(doc *portfolio.Document, remote bool) {
	if s.opts.OnCommit != nil {
		s.opts.OnCommit(doc, remote)
	}
}

// UndoChanges discards the working copy after confirm agrees to
// PromptUndo. It does nothing and returns false when the session is clean.
func (s *Session) UndoChanges(confirm ConfirmFunc) bool {
	s.mu.Lock()
	dirty := s.dirtyLocked()
	asked := s.current
	s.mu.Unlock()

	if !dirty || confirm == nil || !confirm(PromptUndo) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != asked {
		return false
	}
	s.touchLocked()
	s.current = s.committed.Clone()
	return true
}

// UploadImage hands img to the image host and returns its URL. It does not
// change the document; the caller places the URL with UpdateSection.
func (s *Session) UploadImage(ctx context.Context, img store.Image) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	if !s.editMode {
		s.mu.Unlock()
		return "", ErrNotEditing
	}
	if s.opts.Images == nil {
		s.mu.Unlock()
		return "", ErrNoImageHost
	}
	s.touchLocked()
	epoch := s.epoch
	opCtx, done := s.opContextLocked(ctx)
	s.mu.Unlock()
	defer done()

	url, err := s.opts.Images.Upload(opCtx, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return "", ErrSuperseded
	}
	if err != nil {
		return "", xerrors.Wrap(err, "upload image")
	}
	return url, nil
}

// Close cancels in-flight calls and makes every later operation fail.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.editMode = false
	s.resetOpsLocked()
}
