// Package nginx publishes rendered proxy configuration to disk and reloads
// the proxy process.
package nginx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/mattn/go-shellwords"
	"github.com/melih/lighthouse-deploy/internal/core/ports"
)

// DefaultReloadTimeout bounds the reload command when no timeout is set.
const DefaultReloadTimeout = 30 * time.Second

// Options configures a Publisher.
type Options struct {
	// ReloadCommand is run after every write, e.g. "nginx -s reload".
	// Empty disables reloading.
	ReloadCommand string
	ReloadTimeout time.Duration
	Logger        *slog.Logger
}

// Publisher implements ports.ProxyPublisher.
type Publisher struct {
	reload  []string
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.ProxyPublisher = (*Publisher)(nil)

// NewPublisher creates a Publisher. The reload command is split with shell
// quoting rules; it is executed directly, not through a shell.
func NewPublisher(opts Options) (*Publisher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	p := &Publisher{timeout: opts.ReloadTimeout, logger: opts.Logger}
	if strings.TrimSpace(opts.ReloadCommand) != "" {
		args, err := shellwords.Parse(opts.ReloadCommand)
		if err != nil {
			return nil, fmt.Errorf("invalid reload command %q: %w", opts.ReloadCommand, err)
		}
		p.reload = args
	}
	return p, nil
}

// Write atomically replaces path with text.
func (p *Publisher) Write(_ context.Context, path, text string) error {
	if path == "" {
		return errors.New("proxy config path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	p.logger.Info("wrote proxy config", "path", path, "bytes", len(text))
	return nil
}

// Reload runs the configured reload command. It is a no-op when none is set.
func (p *Publisher) Reload(ctx context.Context) error {
	if len(p.reload) == 0 {
		p.logger.Debug("no reload command configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	command := shellescape.QuoteCommand(p.reload)
	p.logger.Info("reloading proxy", "command", command)

	out, err := exec.CommandContext(ctx, p.reload[0], p.reload[1:]...).CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", command, err, msg)
		}
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}
