// Package runtimepath locates the per-user runtime directory that holds the
// unitydialog daemon's control socket.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// SocketEnv overrides the control socket path.
const SocketEnv = "UNITYDIALOG_SOCKET"

const socketName = "unitydialog.sock"

// Dir returns $XDG_RUNTIME_DIR, then /run/user/<uid>, then a private
// unitydialog-runtime-<uid> directory under the temp dir, created on demand.
func Dir() (string, error) {
	return dir(os.Getenv, os.Getuid(), "/run/user", os.TempDir())
}

func dir(getenv func(string) string, uid int, runUser, tmp string) (string, error) {
	if d := getenv("XDG_RUNTIME_DIR"); d != "" {
		return d, nil
	}
	if d := filepath.Join(runUser, strconv.Itoa(uid)); isDir(d) {
		return d, nil
	}

	d := filepath.Join(tmp, fmt.Sprintf("unitydialog-runtime-%d", uid))
	if err := os.MkdirAll(d, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	if err := checkPrivate(d, uid); err != nil {
		return "", err
	}
	return d, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// checkPrivate rejects a fallback directory that another user created first
// or that other users can enter: the socket accepts RELOAD from anyone who
// can reach it.
func checkPrivate(path string, uid int) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("runtime dir %s is not a directory", path)
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok && int(st.Uid) != uid {
		return fmt.Errorf("runtime dir %s is owned by uid %d, not %d", path, st.Uid, uid)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return fmt.Errorf("runtime dir %s is open to other users (mode %#o)", path, perm)
	}
	return nil
}

// SocketPath returns the daemon control socket: $UNITYDIALOG_SOCKET when set,
// otherwise unitydialog.sock in Dir.
func SocketPath() (string, error) {
	if p := os.Getenv(SocketEnv); p != "" {
		return p, nil
	}
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, socketName), nil
}
