// Package busnotify publishes parent tracking on the session bus so panels
// and shells can follow which windows are dimmed behind a dialog.
//
// The object at ObjectPath implements:
//
//	method Parents() -> au
//	method Transients(u parent) -> au
//	signal ParentTracked(u window)
//	signal ParentUntracked(u window)
package busnotify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/platform"
)

const (
	ServiceName = "com.canonical.Unity.Dialog"
	ObjectPath  = dbus.ObjectPath("/com/canonical/Unity/Dialog")
	Interface   = "com.canonical.Unity.Dialog"

	signalQueueSize = 64
)

// Source supplies the relationship state. It is called from bus goroutines.
type Source interface {
	Snapshot() dialog.Snapshot
}

// emitter is the part of *dbus.Conn used to send signals.
type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

type signal struct {
	name   string
	window uint32
}

// Notifier owns the bus connection and forwards parent changes as signals.
// ParentChanged never blocks on the bus.
type Notifier struct {
	conn   *dbus.Conn
	emit   emitter
	logger *slog.Logger

	queue     chan signal
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Connect claims ServiceName on the session bus and exports the dialog
// object backed by source.
func Connect(source Source, logger *slog.Logger) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	svc := &service{source: source}
	if err := conn.Export(svc, ObjectPath, Interface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export %s: %w", ObjectPath, err)
	}
	if err := conn.Export(introspect.NewIntrospectable(introspectNode(svc)), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export introspection data: %w", err)
	}

	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request name %s: %w", ServiceName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s is already taken", ServiceName)
	}

	n := newNotifier(conn, logger)
	n.conn = conn
	return n, nil
}

func newNotifier(emit emitter, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		emit:   emit,
		logger: logger,
		queue:  make(chan signal, signalQueueSize),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// ParentChanged queues ParentTracked or ParentUntracked for id. It has the
// shape of dialog.ParentListener and must not be called after Close.
func (n *Notifier) ParentChanged(id platform.WindowID, tracked bool) {
	name := "ParentUntracked"
	if tracked {
		name = "ParentTracked"
	}
	select {
	case n.queue <- signal{name: name, window: uint32(id)}:
	default:
		n.logger.Warn("dropping bus signal, queue is full", "signal", name, "window", id)
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for sig := range n.queue {
		if err := n.emit.Emit(ObjectPath, Interface+"."+sig.name, sig.window); err != nil {
			n.logger.Warn("failed to emit bus signal", "signal", sig.name, "window", sig.window, "error", err)
		}
	}
}

// Close flushes queued signals and releases the bus connection.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.queue)
		n.wg.Wait()
		if n.conn != nil {
			err = n.conn.Close()
		}
	})
	return err
}

// service is the exported bus object.
type service struct {
	source Source
}

// Parents returns every tracked parent in tracking order.
func (s *service) Parents() ([]uint32, *dbus.Error) {
	snap := s.source.Snapshot()
	ids := make([]uint32, 0, len(snap.Parents))
	for _, p := range snap.Parents {
		ids = append(ids, uint32(p.ID))
	}
	return ids, nil
}

// Transients returns the transients of parent in the order they were added.
func (s *service) Transients(parent uint32) ([]uint32, *dbus.Error) {
	for _, p := range s.source.Snapshot().Parents {
		if uint32(p.ID) != parent {
			continue
		}
		ids := make([]uint32, 0, len(p.Transients))
		for _, t := range p.Transients {
			ids = append(ids, uint32(t))
		}
		return ids, nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("window %#x is not a tracked parent", parent))
}

func introspectNode(svc *service) *introspect.Node {
	windowArg := []introspect.Arg{{Name: "window", Type: "u"}}
	return &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: introspect.Methods(svc),
				Signals: []introspect.Signal{
					{Name: "ParentTracked", Args: windowArg},
					{Name: "ParentUntracked", Args: windowArg},
				},
			},
		},
	}
}
