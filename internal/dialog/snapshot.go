package dialog

import (
	"fmt"
	"sort"

	"github.com/1broseidon/unitydialog/internal/platform"
)

// MatchInitExp compiles the value of a "transient-dialog=" match term. "1"
// selects windows whose transient parent currently resolves; "0" selects the
// rest. An existing attachment does not count on its own.
func (s *Screen) MatchInitExp(value string) (func(id platform.WindowID) bool, error) {
	var want bool
	switch value {
	case "1", "true":
		want = true
	case "0", "false":
		want = false
	default:
		return nil, fmt.Errorf("transient-dialog expects 0 or 1, got %q", value)
	}
	return func(id platform.WindowID) bool {
		return s.isTransientDialog(id) == want
	}, nil
}

func (s *Screen) isTransientDialog(id platform.WindowID) bool {
	_, ok := s.TransientParent(id)
	return ok
}

// ParentInfo describes one tracked parent.
type ParentInfo struct {
	ID                  platform.WindowID   `json:"id"`
	Transients          []platform.WindowID `json:"transients"`
	ShadeProgress       int                 `json:"shade_progress"`
	HasInputPassthrough bool                `json:"has_input_passthrough"`
	Constrained         bool                `json:"constrained"`
}

// Snapshot is a read-only view of the Screen.
type Snapshot struct {
	Parents           []ParentInfo `json:"parents"`
	Windows           int          `json:"windows"`
	Transients        int          `json:"transients"`
	SwitchingViewport bool         `json:"switching_viewport"`
	FadeTimeMS        int          `json:"fade_time_ms"`
}

// Snapshot returns the current state. Parents are reported in tracking order.
func (s *Screen) Snapshot() Snapshot {
	snap := Snapshot{
		Windows:           len(s.windows),
		SwitchingViewport: s.switchingVp,
		FadeTimeMS:        int(s.fadeTime.Milliseconds()),
	}
	for _, w := range s.windows {
		if w.parent != 0 {
			snap.Transients++
		}
	}
	for _, id := range s.parents {
		w, ok := s.windows[id]
		if !ok {
			continue
		}
		snap.Parents = append(snap.Parents, ParentInfo{
			ID:                  id,
			Transients:          w.Transients(),
			ShadeProgress:       w.shadeProgress,
			HasInputPassthrough: w.ipw != 0,
			Constrained:         !w.diff.zero(),
		})
	}
	return snap
}

// Check verifies the parent/transient links are symmetric and acyclic and
// returns every violation found.
func (s *Screen) Check() []error {
	var errs []error
	ids := make([]platform.WindowID, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		w := s.windows[id]
		for _, t := range w.transients {
			tw, ok := s.windows[t]
			if !ok {
				errs = append(errs, fmt.Errorf("window %#x lists unknown transient %#x", id, t))
				continue
			}
			if tw.parent != id {
				errs = append(errs, fmt.Errorf("window %#x lists transient %#x whose parent is %#x", id, t, tw.parent))
			}
		}
		if w.parent != 0 {
			p, ok := s.windows[w.parent]
			if !ok || !p.HasTransient(id) {
				errs = append(errs, fmt.Errorf("window %#x has parent %#x that does not list it", id, w.parent))
			}
		}

		seen := map[platform.WindowID]bool{id: true}
		for cur := w.parent; cur != 0; {
			if seen[cur] {
				errs = append(errs, fmt.Errorf("window %#x is part of a parent cycle", id))
				break
			}
			seen[cur] = true
			p, ok := s.windows[cur]
			if !ok {
				break
			}
			cur = p.parent
		}
	}
	return errs
}
