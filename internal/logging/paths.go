package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogFileName is the active log file name inside the log directory.
const LogFileName = "amandocs.log"

// DefaultLogDir returns the default log directory (~/.amandocs/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amandocs", "logs")
	}
	return filepath.Join(home, ".amandocs", "logs")
}

// PathIn returns the log file path inside dir.
func PathIn(dir string) string {
	return filepath.Join(dir, LogFileName)
}

// FindLogFile locates the log file to view. An explicit path wins;
// otherwise the file inside dir is used.
func FindLogFile(dir, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return explicit, nil
	}

	p := PathIn(dir)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("no log file yet, run a command first (expected at %s)", p)
	}
	return p, nil
}
