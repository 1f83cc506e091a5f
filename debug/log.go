package debug

import (
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	file *os.File
	mu   sync.Mutex
)

// Enable redirects logrus to ~/.config/seedtone/debug.log. The terminal
// belongs to the TUI while playing, so logs cannot go to stderr.
func Enable() error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(homeDir, ".config", "seedtone")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	log.SetOutput(file)
	log.SetLevel(log.DebugLevel)
	log.Debug("debug logging started")
	return nil
}

// Disable closes the log file and restores stderr output
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	log.SetOutput(os.Stderr)
	if file != nil {
		file.Close()
		file = nil
	}
}
