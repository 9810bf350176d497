package ipc

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/platform"
)

type fakeBackend struct {
	mu        sync.Mutex
	snap      dialog.Snapshot
	problems  []error
	reloadErr error
	reloads   int
}

func (b *fakeBackend) Snapshot() dialog.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

func (b *fakeBackend) Check() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.problems
}

func (b *fakeBackend) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads++
	return b.reloadErr
}

func startServer(t *testing.T, backend Backend) *Server {
	t.Helper()
	t.Setenv("UNITYDIALOG_SOCKET", filepath.Join(t.TempDir(), "ud.sock"))

	srv, err := NewServer(backend)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_GetStatus(t *testing.T) {
	backend := &fakeBackend{snap: dialog.Snapshot{
		Parents:    []dialog.ParentInfo{{ID: 0x100, Transients: []platform.WindowID{0x200}}},
		Windows:    2,
		Transients: 1,
		FadeTimeMS: 150,
	}}
	startServer(t, backend)

	status, err := NewClient().GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning {
		t.Fatalf("expected daemon_running")
	}
	if status.Parents != 1 || status.Transients != 1 || status.Windows != 2 || status.FadeTimeMS != 150 {
		t.Fatalf("unexpected status %+v", status)
	}
	if err := NewClient().Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestServer_ListParents(t *testing.T) {
	backend := &fakeBackend{snap: dialog.Snapshot{
		Parents: []dialog.ParentInfo{
			{ID: 0x100, Transients: []platform.WindowID{0x200, 0x300}, ShadeProgress: 0xffff, HasInputPassthrough: true},
			{ID: 0x400, Transients: []platform.WindowID{0x500}, Constrained: true},
		},
	}}
	startServer(t, backend)

	data, err := NewClient().ListParents()
	if err != nil {
		t.Fatalf("ListParents: %v", err)
	}
	if len(data.Parents) != 2 {
		t.Fatalf("expected 2 parents, got %+v", data.Parents)
	}
	first := data.Parents[0]
	if first.ID != 0x100 || len(first.Transients) != 2 || first.Transients[1] != 0x300 {
		t.Fatalf("unexpected first parent %+v", first)
	}
	if first.ShadeProgress != 0xffff || !first.HasInputPassthrough {
		t.Fatalf("unexpected first parent state %+v", first)
	}
	if !data.Parents[1].Constrained {
		t.Fatalf("expected second parent to be constrained")
	}
}

func TestServer_ListParentsEmpty(t *testing.T) {
	startServer(t, &fakeBackend{})

	data, err := NewClient().ListParents()
	if err != nil {
		t.Fatalf("ListParents: %v", err)
	}
	if data.Parents == nil || len(data.Parents) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", data.Parents)
	}
}

func TestServer_Reload(t *testing.T) {
	backend := &fakeBackend{}
	startServer(t, backend)

	if err := NewClient().Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	backend.mu.Lock()
	backend.reloadErr = errors.New("fade_time: out of range")
	backend.mu.Unlock()

	err := NewClient().Reload()
	if err == nil {
		t.Fatalf("expected reload error")
	}
	if !strings.Contains(err.Error(), "fade_time") {
		t.Fatalf("expected backend error to be forwarded, got %v", err)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.reloads != 2 {
		t.Fatalf("expected 2 reloads, got %d", backend.reloads)
	}
}

func TestServer_Check(t *testing.T) {
	backend := &fakeBackend{problems: []error{errors.New("window 0x200 is part of a parent cycle")}}
	startServer(t, backend)

	data, err := NewClient().Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(data.Problems) != 1 || !strings.Contains(data.Problems[0], "cycle") {
		t.Fatalf("unexpected problems %v", data.Problems)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	srv := &Server{backend: &fakeBackend{}}
	resp := srv.handleCommand(&Request{Command: "LAYOUT"})
	if resp.Status != "ERROR" || !strings.Contains(resp.Error, "LAYOUT") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	t.Setenv("UNITYDIALOG_SOCKET", filepath.Join(t.TempDir(), "missing.sock"))
	if err := NewClient().Ping(); err == nil {
		t.Fatalf("expected connection error")
	}
}

func TestServer_StopIsIdempotent(t *testing.T) {
	srv := startServer(t, &fakeBackend{})
	srv.Stop()
	srv.Stop()
	if err := NewClient().Ping(); err == nil {
		t.Fatalf("expected connection error after Stop")
	}
}
