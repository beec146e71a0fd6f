package bulk

import (
	"context"
	"fmt"
	"mirrord/internal/logger"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner invokes the external full-tree copy tool once at startup, catching
// up on anything created while the agent was down. Its exit status is
// informational; the watch phase starts either way.
type Runner struct {
	tool string
	args []string
}

// NewRunner builds a runner for tool. args replaces the default argument set
// when non-empty; occurrences of {src}, {dst} and {log} are substituted.
func NewRunner(tool string, args []string) *Runner {
	return &Runner{
		tool: tool,
		args: args,
	}
}

func (r *Runner) Run(ctx context.Context, src, dst, logDir string) error {
	logPath := ""
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log dir: %w", err)
		}
		logPath = filepath.Join(logDir, time.Now().Format("20060102-150405")+"_bulkcopy.log")
	}

	argv := r.buildArgs(src, dst, logPath)

	logger.Log.Info("bulk copy started",
		zap.String("tool", r.tool),
		zap.Strings("args", argv))

	cmd := exec.CommandContext(ctx, r.tool, argv...)
	start := time.Now()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("bulk copy tool failed: %w", err)
	}

	logger.Log.Info("bulk copy finished",
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Runner) buildArgs(src, dst, logPath string) []string {
	if len(r.args) > 0 {
		argv := make([]string, 0, len(r.args))
		for _, a := range r.args {
			a = strings.ReplaceAll(a, "{src}", src)
			a = strings.ReplaceAll(a, "{dst}", dst)
			a = strings.ReplaceAll(a, "{log}", logPath)
			argv = append(argv, a)
		}
		return argv
	}

	// rsync defaults: recurse with timestamps, never touch entries that
	// already exist at the destination, never delete.
	argv := []string{"--recursive", "--times", "--ignore-existing"}
	if logPath != "" {
		argv = append(argv, "--log-file="+logPath)
	}

	// Trailing separator so rsync copies the contents of src, not src itself.
	return append(argv, src+string(os.PathSeparator), dst)
}
