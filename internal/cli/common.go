package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const usageExitCode = 2

type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

func usageError(format string, args ...any) error {
	return &exitError{code: usageExitCode, message: fmt.Sprintf(format, args...)}
}

// stringSetting prefers an explicitly set flag, then the config value, then
// the fallback.
func stringSetting(cmd *cobra.Command, name, flagValue, configValue, fallback string) string {
	if cmd.Flags().Changed(name) {
		return strings.ToLower(strings.TrimSpace(flagValue))
	}
	if v := strings.ToLower(strings.TrimSpace(configValue)); v != "" {
		return v
	}
	return fallback
}

func intSetting(cmd *cobra.Command, name string, flagValue int, configValue *int, fallback int) int {
	if cmd.Flags().Changed(name) {
		return flagValue
	}
	if configValue != nil {
		return *configValue
	}
	return fallback
}
