package crack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes the local OCR toolchain. Tests swap in a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()
	switch {
	case errors.Is(err, exec.ErrNotFound):
		r.logger.Error("crack.exec.missing_tool", "tool", name)
		return nil, nil, fmt.Errorf("%s not installed: %w", name, err)
	case err != nil:
		r.logger.Error("crack.exec.failed",
			"tool", name,
			"argc", len(args),
			"error", err,
			"stderr", truncate(stderr.String(), 4<<10),
			"elapsed_ms", elapsed,
		)
	default:
		r.logger.Debug("crack.exec.ok", "tool", name, "stdout_bytes", stdout.Len(), "elapsed_ms", elapsed)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
