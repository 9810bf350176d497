package dialog

import (
	"errors"
	"fmt"
)

// Capability versions this package is built against. A host must declare
// the same version for each.
const (
	CoreABI      = 3
	CompositeABI = 5
	OpenGLABI    = 7
)

// RequiredABI lists the host capabilities the Screen needs.
var RequiredABI = map[string]int{
	"core":      CoreABI,
	"composite": CompositeABI,
	"opengl":    OpenGLABI,
}

// CheckABI verifies that a host declares every required capability at the
// expected version.
func CheckABI(declared map[string]int) error {
	var errs []error
	for _, name := range []string{"core", "composite", "opengl"} {
		want := RequiredABI[name]
		got, ok := declared[name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("host does not provide %s", name))
		case got != want:
			errs = append(errs, fmt.Errorf("%s ABI mismatch: host %d, need %d", name, got, want))
		}
	}
	return errors.Join(errs...)
}
