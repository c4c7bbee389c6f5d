package content

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohammadalshikh/orbit/internal/portfolio"
)

// NewManager / Get initial state

func TestManager_InitialState(t *testing.T) {
	m := NewManager()

	snap, ok := m.Get()
	if ok || snap != nil {
		t.Fatal("expected no snapshot on new manager")
	}
	if m.ContentVersion() != "" || m.ContentHash() != "" {
		t.Fatal("expected empty version and hash")
	}
	if m.Source() != SourceUnknown {
		t.Fatalf("Source = %q, want unknown", m.Source())
	}
	if !m.LoadedAt().IsZero() {
		t.Fatal("expected zero LoadedAt")
	}
	if err := m.ReadyErr(); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("ReadyErr = %v, want ErrNotPublished", err)
	}
}

// Publish

func TestManager_Publish(t *testing.T) {
	m := NewManager()
	doc := portfolio.Sample()

	snap := m.Publish(doc, SourceRemote)

	if snap.Meta.Version != "1" {
		t.Fatalf("Version = %q, want 1", snap.Meta.Version)
	}
	if snap.Meta.Hash != doc.Hash() || len(snap.Meta.Hash) != 64 {
		t.Fatalf("Hash = %q", snap.Meta.Hash)
	}
	if m.ContentHash() != snap.Meta.Hash || m.ContentVersion() != "1" {
		t.Fatal("accessors disagree with snapshot")
	}
	if m.Source() != SourceRemote {
		t.Fatalf("Source = %q", m.Source())
	}
	if err := m.ReadyErr(); err != nil {
		t.Fatalf("ReadyErr: %v", err)
	}

	m.Publish(doc, SourceLocal)
	if m.ContentVersion() != "2" {
		t.Fatalf("Version = %q, want 2", m.ContentVersion())
	}
}

func TestManager_Publish_CopiesDocument(t *testing.T) {
	m := NewManager()
	doc := portfolio.Sample()
	m.Publish(doc, SourceSample)

	doc.About.Intro = "mutated after publish"

	snap, _ := m.Get()
	if snap.Doc.About.Intro == "mutated after publish" {
		t.Fatal("published snapshot shares memory with caller")
	}
}

func TestManager_Set_CopiesSnapshot(t *testing.T) {
	m := NewManager()
	original := Snapshot{Doc: portfolio.Default(), Meta: Meta{Hash: "abc"}}
	m.Set(original)

	original.Meta.Hash = "changed"

	if m.ContentHash() != "abc" {
		t.Fatalf("ContentHash = %q, want abc", m.ContentHash())
	}
}

func TestManager_Set_DefaultsLoadedAt(t *testing.T) {
	m := NewManager()
	before := time.Now().UTC()
	m.Set(Snapshot{Doc: portfolio.Default()})
	if m.LoadedAt().Before(before) {
		t.Fatal("LoadedAt not set")
	}

	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.Set(Snapshot{Doc: portfolio.Default(), LoadedAt: fixed})
	if !m.LoadedAt().Equal(fixed) {
		t.Fatalf("LoadedAt = %v, want %v", m.LoadedAt(), fixed)
	}
}

func TestManager_Get_RequiresDoc(t *testing.T) {
	m := NewManager()
	m.Set(Snapshot{Meta: Meta{Hash: "abc"}})
	if _, ok := m.Get(); ok {
		t.Fatal("expected Get to return false when Doc is nil")
	}
}

func TestManager_OnPublish(t *testing.T) {
	m := NewManager()
	var got []Source
	m.OnPublish = func(s Snapshot) { got = append(got, s.Meta.Source) }

	m.Publish(portfolio.Default(), SourceSample)
	m.Publish(portfolio.Default(), SourceRemote)

	if len(got) != 2 || got[0] != SourceSample || got[1] != SourceRemote {
		t.Fatalf("OnPublish sources = %v", got)
	}
}

// Concurrency

func TestManager_ConcurrentPublishAndGet(t *testing.T) {
	m := NewManager()
	m.Publish(portfolio.Sample(), SourceSample)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Publish(portfolio.Sample(), SourceRemote)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if snap, ok := m.Get(); !ok || snap.Doc == nil {
					t.Error("Get returned no snapshot")
					return
				}
			}
		}()
	}
	wg.Wait()

	if m.ContentVersion() != "401" {
		t.Fatalf("Version = %q, want 401", m.ContentVersion())
	}
}

func TestManager_SetLogs(t *testing.T) {
	m := NewManager()
	if m.SetLogs(3) {
		t.Fatal("SetLogs before publish should report false")
	}

	doc := portfolio.Default()
	doc.Logs = 2
	first := m.Publish(doc, SourceRemote)

	if !m.SetLogs(3) {
		t.Fatal("SetLogs(3) = false")
	}
	snap, _ := m.Get()
	if snap.Doc.Logs != 3 {
		t.Fatalf("Logs = %d, want 3", snap.Doc.Logs)
	}
	if snap.Meta.Source != SourceRemote {
		t.Fatalf("Source = %q, want remote", snap.Meta.Source)
	}
	if snap.Meta.Version == first.Meta.Version || snap.Meta.Hash == first.Meta.Hash {
		t.Fatalf("version/hash not bumped: %+v", snap.Meta)
	}
	if doc.Logs != 2 || first.Doc.Logs != 2 {
		t.Fatal("SetLogs mutated an earlier document")
	}
	if m.SetLogs(3) {
		t.Fatal("unchanged count should report false")
	}
}
