package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/unitydialog/internal/config"
)

var (
	runCommandOutputFn        = runCommandOutput
	readFileFn                = os.ReadFile
	readDirFn                 = os.ReadDir
	detectSessionX11EnvFn     = detectSessionX11Env
	detectDisplayFromSocketFn = detectDisplayFromSockets
)

// displayTarget names the X server the daemon attaches to.
type displayTarget struct {
	Display    string
	XAuthority string
}

// resolveDisplay picks the display for a daemon that may have been started
// without a graphical environment (systemd user units, cron). Config wins
// over the environment, which wins over the login session and finally the
// X socket directory.
func resolveDisplay(getenv func(string) string, cfg *config.Config) (displayTarget, error) {
	var target displayTarget
	if cfg != nil {
		target.Display = strings.TrimSpace(cfg.Display)
		target.XAuthority = strings.TrimSpace(cfg.XAuthority)
	}
	if target.Display == "" {
		target.Display = strings.TrimSpace(getenv("DISPLAY"))
	}
	if target.XAuthority == "" {
		target.XAuthority = strings.TrimSpace(getenv("XAUTHORITY"))
	}

	if target.Display == "" || target.XAuthority == "" {
		detectedDisplay, detectedXAuthority := detectSessionX11EnvFn()
		if target.Display == "" {
			target.Display = strings.TrimSpace(detectedDisplay)
		}
		if target.XAuthority == "" {
			target.XAuthority = strings.TrimSpace(detectedXAuthority)
		}
	}

	if target.Display == "" {
		target.Display = detectDisplayFromSocketFn("/tmp/.X11-unix")
	}
	if target.Display == "" {
		return displayTarget{}, errors.New("no X display found; set display in config (e.g. display: \":0\") or export DISPLAY")
	}

	if target.XAuthority == "" {
		home := strings.TrimSpace(getenv("HOME"))
		if home == "" {
			if detectedHome, err := os.UserHomeDir(); err == nil {
				home = detectedHome
			}
		}
		if home != "" {
			candidate := filepath.Join(home, ".Xauthority")
			if _, err := os.Stat(candidate); err == nil {
				target.XAuthority = candidate
			}
		}
	}
	return target, nil
}

func runCommandOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// detectSessionX11Env asks logind for a graphical session of the current
// user and reads DISPLAY and XAUTHORITY from its leader process.
func detectSessionX11Env() (display string, xauthority string) {
	uid := strconv.Itoa(os.Getuid())
	out, err := runCommandOutputFn("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", ""
	}
	for _, sessionID := range parseLoginctlSessions(out, uid) {
		d := loginctlShowSessionProp(sessionID, "Display")
		if d == "" || strings.EqualFold(d, "n/a") {
			continue
		}

		leader := loginctlShowSessionProp(sessionID, "Leader")
		if leader == "" || leader == "0" {
			return d, ""
		}
		env, err := readProcEnviron(leader)
		if err != nil {
			return d, ""
		}
		if ed := strings.TrimSpace(env["DISPLAY"]); ed != "" {
			d = ed
		}
		return d, strings.TrimSpace(env["XAUTHORITY"])
	}
	return "", ""
}

func parseLoginctlSessions(output string, uid string) []string {
	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == uid {
			sessions = append(sessions, fields[0])
		}
	}
	return sessions
}

func loginctlShowSessionProp(sessionID string, prop string) string {
	out, err := runCommandOutputFn("loginctl", "show-session", sessionID, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func readProcEnviron(pid string) (map[string]string, error) {
	data, err := readFileFn(filepath.Join("/proc", pid, "environ"))
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, part := range strings.Split(string(data), "\x00") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env, nil
}

// detectDisplayFromSockets returns the highest numbered display with a
// socket in dir.
func detectDisplayFromSockets(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}

	var displays []int
	for _, entry := range entries {
		name := entry.Name()
		if len(name) < 2 || name[0] != 'X' {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		displays = append(displays, n)
	}

	if len(displays) == 0 {
		return ""
	}
	sort.Ints(displays)
	return fmt.Sprintf(":%d", displays[len(displays)-1])
}
