package cli

import (
	"bufio"
	"io"

	"github.com/codequest-app/codequest/internal/app/content"
	"github.com/codequest-app/codequest/internal/daemon"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// loadConfig reads --config, or the default config file.
func loadConfig() (daemon.Config, error) {
	if configPath != "" {
		return daemon.LoadConfigFrom(configPath)
	}
	return daemon.LoadConfig()
}

// openCatalog builds a catalog without starting the rest of the daemon.
func openCatalog(cfg daemon.Config) (*content.Catalog, error) {
	log, err := logger.New(cfg.Logging.Mode, "error")
	if err != nil {
		return nil, err
	}
	return daemon.OpenCatalog(cfg.Content, log)
}

// newLineScanner creates a line scanner from a reader.
func newLineScanner(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(r)
}
