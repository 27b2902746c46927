package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevelEnv overrides the log level selected by --verbose. Accepts the
// slog level names: debug, info, warn, error.
const LogLevelEnv = "BABOON_LOG_LEVEL"

// ConfigureLogging installs the default slog logger used by every command.
// Logs go to w as text. Without --verbose only warnings and errors are
// shown.
func ConfigureLogging(w io.Writer, verbose bool) error {
	level, err := logLevel(verbose, os.Getenv(LogLevelEnv))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func logLevel(verbose bool, env string) (slog.Level, error) {
	if env = strings.TrimSpace(env); env != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(env)); err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", LogLevelEnv, env, err)
		}
		return level, nil
	}
	if verbose {
		return slog.LevelDebug, nil
	}
	return slog.LevelWarn, nil
}
