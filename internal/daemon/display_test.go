package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/1broseidon/unitydialog/internal/config"
)

func envFunc(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func stubDetectFns(
	detectSession func() (string, string),
	detectSocket func(string) string,
) func() {
	origSession := detectSessionX11EnvFn
	origSocket := detectDisplayFromSocketFn
	detectSessionX11EnvFn = detectSession
	detectDisplayFromSocketFn = detectSocket
	return func() {
		detectSessionX11EnvFn = origSession
		detectDisplayFromSocketFn = origSocket
	}
}

func TestResolveDisplay_ConfigWinsOverEnv(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":99", "/tmp/should-not-be-used" },
		func(string) string { return ":88" },
	)
	defer restore()

	env := envFunc(map[string]string{
		"HOME":       t.TempDir(),
		"DISPLAY":    ":7",
		"XAUTHORITY": "/tmp/xauth-env",
	})
	got, err := resolveDisplay(env, &config.Config{Display: ":1", XAuthority: "/tmp/xauth-cfg"})
	if err != nil {
		t.Fatalf("resolveDisplay returned error: %v", err)
	}
	if got.Display != ":1" || got.XAuthority != "/tmp/xauth-cfg" {
		t.Fatalf("resolveDisplay = %+v, want :1 and /tmp/xauth-cfg", got)
	}
}

func TestResolveDisplay_UsesEnv(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":99", "/tmp/should-not-be-used" },
		func(string) string { return ":88" },
	)
	defer restore()

	env := envFunc(map[string]string{
		"DISPLAY":    ":7",
		"XAUTHORITY": "/tmp/xauth-env",
	})
	got, err := resolveDisplay(env, config.DefaultConfig())
	if err != nil {
		t.Fatalf("resolveDisplay returned error: %v", err)
	}
	if got.Display != ":7" || got.XAuthority != "/tmp/xauth-env" {
		t.Fatalf("resolveDisplay = %+v, want :7 and /tmp/xauth-env", got)
	}
}

func TestResolveDisplay_UsesDetectedSession(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":5", "/tmp/xauth-detected" },
		func(string) string { return "" },
	)
	defer restore()

	got, err := resolveDisplay(envFunc(map[string]string{"HOME": t.TempDir()}), nil)
	if err != nil {
		t.Fatalf("resolveDisplay returned error: %v", err)
	}
	if got.Display != ":5" || got.XAuthority != "/tmp/xauth-detected" {
		t.Fatalf("resolveDisplay = %+v, want :5 and /tmp/xauth-detected", got)
	}
}

func TestResolveDisplay_FallsBackToSocketAndHomeXAuthority(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return ":3" },
	)
	defer restore()

	home := t.TempDir()
	xauth := filepath.Join(home, ".Xauthority")
	if err := os.WriteFile(xauth, []byte("cookie"), 0600); err != nil {
		t.Fatalf("write xauthority: %v", err)
	}

	got, err := resolveDisplay(envFunc(map[string]string{"HOME": home}), nil)
	if err != nil {
		t.Fatalf("resolveDisplay returned error: %v", err)
	}
	if got.Display != ":3" {
		t.Fatalf("Display = %q, want %q", got.Display, ":3")
	}
	if got.XAuthority != xauth {
		t.Fatalf("XAuthority = %q, want %q", got.XAuthority, xauth)
	}
}

func TestResolveDisplay_ErrorWhenNoDisplay(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return "" },
	)
	defer restore()

	_, err := resolveDisplay(envFunc(map[string]string{"HOME": t.TempDir()}), nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no X display found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDetectSessionX11Env_ReadsLeaderEnviron(t *testing.T) {
	origRun, origRead := runCommandOutputFn, readFileFn
	defer func() {
		runCommandOutputFn, readFileFn = origRun, origRead
	}()

	uid := strconv.Itoa(os.Getuid())
	runCommandOutputFn = func(name string, args ...string) (string, error) {
		switch {
		case len(args) > 0 && args[0] == "list-sessions":
			return "4 " + uid + " someone seat0\n", nil
		case len(args) > 3 && args[3] == "Display":
			return ":0\n", nil
		case len(args) > 3 && args[3] == "Leader":
			return "1234\n", nil
		}
		return "", errors.New("unexpected command")
	}
	readFileFn = func(path string) ([]byte, error) {
		if path != filepath.Join("/proc", "1234", "environ") {
			return nil, os.ErrNotExist
		}
		return []byte("HOME=/home/someone\x00DISPLAY=:1\x00XAUTHORITY=/run/user/1000/xauth\x00"), nil
	}

	display, xauth := detectSessionX11Env()
	if display != ":1" || xauth != "/run/user/1000/xauth" {
		t.Fatalf("detectSessionX11Env = %q, %q; want :1, /run/user/1000/xauth", display, xauth)
	}
}

func TestDetectDisplayFromSockets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X0", "X2", "not-a-display"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if got := detectDisplayFromSockets(dir); got != ":2" {
		t.Fatalf("detectDisplayFromSockets = %q, want %q", got, ":2")
	}
}

func TestParseLoginctlSessions(t *testing.T) {
	out := strings.Join([]string{
		"1 1000 george seat0",
		"2 1001 alice seat0",
		"3 1000 george seat1",
		"",
	}, "\n")
	got := parseLoginctlSessions(out, "1000")
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("parseLoginctlSessions = %v, want [1 3]", got)
	}
}
