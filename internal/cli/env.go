package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/futureCreator/renote/internal/config"
	vlog "github.com/futureCreator/renote/internal/log"
)

// loadConfig loads and validates configuration, applies --log-level and sets
// up logging. The returned closer releases the log file.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, usageErr(fmt.Errorf("loading config: %w", err))
	}
	if flagLogLevel != "" {
		if _, err := vlog.ParseLevel(flagLogLevel); err != nil {
			return nil, nil, usageErr(err)
		}
		cfg.LogLevel = flagLogLevel
	}

	logFile := openLogFile()
	var w io.Writer
	closer := func() {}
	if logFile != nil {
		w = logFile
		closer = func() { logFile.Close() }
	}
	vlog.Init(cfg.LogLevel, cfg.LogFormat, w)
	return cfg, closer, nil
}

func openLogFile() *os.File {
	if err := os.MkdirAll(config.DirName, 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(config.DirName, "renote.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return f
}
