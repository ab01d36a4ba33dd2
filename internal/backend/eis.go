package backend

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// eisSocketNames are the socket names probed under XDG_RUNTIME_DIR.
var eisSocketNames = []string{"eis-0", "cosmic-eis"}

// FindEISSocket locates an EIS (emulated input server) socket exposed
// by the compositor, if any.
func FindEISSocket() (string, bool) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", false
	}
	for _, name := range eisSocketNames {
		path := filepath.Join(runtimeDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// ConnectEIS dials the compositor's EIS socket and returns the
// connected descriptor, for handing to the client alongside the
// capture stream. The caller owns the file.
func ConnectEIS() (*os.File, error) {
	path, ok := FindEISSocket()
	if !ok {
		return nil, fmt.Errorf("no EIS socket found: %w", ErrUnsupported)
	}
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("dial EIS socket %s: %w", path, err)
	}
	f, err := conn.File()
	if cerr := conn.Close(); cerr != nil && err == nil {
		if f != nil {
			_ = f.Close()
		}
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("duplicate EIS fd: %w", err)
	}
	return f, nil
}
