package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mekedron/coordextract/internal/domain"
	"github.com/mekedron/coordextract/internal/service/batch"
)

// ConfigManager stores local default payloads.
type ConfigManager interface {
	Path() string
	Load(ctx context.Context) (domain.Config, error)
	Save(ctx context.Context, cfg domain.Config) error
}

// Dependencies wires runtime services.
type Dependencies struct {
	Parser  batch.TrackParser
	Config  ConfigManager
	Version string
}

var errVersionShown = fmt.Errorf("version shown")

// Execute runs the CLI with injected dependencies.
func Execute(ctx context.Context, args []string, deps Dependencies, stdout io.Writer, stderr io.Writer) int {
	cmd := NewRootCommand(deps)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, errVersionShown) {
		return 0
	}
	var controlled *exitError
	if errors.As(err, &controlled) {
		if controlled.message != "" {
			_, _ = fmt.Fprintln(stderr, controlled.message)
		}
		return controlled.code
	}

	if msg := err.Error(); msg != "" {
		_, _ = fmt.Fprintln(stderr, msg)
	}
	return 1
}
