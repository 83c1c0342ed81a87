package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sandeepkv93/remindd/internal/model"
)

// CommandRunner runs an external notifier binary.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// DesktopPresenter shows reminders through notify-send on Linux and
// osascript on macOS. Other platforms are a no-op.
type DesktopPresenter struct {
	channels
	goos    string
	run     CommandRunner
	limiter *rate.Limiter
}

// NewDesktopPresenter limits deliveries to ratePerSec with the given burst.
// A ratePerSec of zero disables the limit.
func NewDesktopPresenter(ratePerSec, burst int) *DesktopPresenter {
	limit, b := rateLimit(ratePerSec, burst)
	return &DesktopPresenter{goos: runtime.GOOS, run: execRunner, limiter: rate.NewLimiter(limit, b)}
}

// SetRate changes the limit in place and is safe to call while Present runs.
func (d *DesktopPresenter) SetRate(ratePerSec, burst int) {
	limit, b := rateLimit(ratePerSec, burst)
	d.limiter.SetLimit(limit)
	d.limiter.SetBurst(b)
}

func rateLimit(ratePerSec, burst int) (rate.Limit, int) {
	if ratePerSec <= 0 {
		return rate.Inf, 1
	}
	if burst <= 0 {
		burst = ratePerSec
	}
	return rate.Limit(ratePerSec), burst
}

func (d *DesktopPresenter) RegisterChannel(ch Channel) error {
	return d.register(ch)
}

func (d *DesktopPresenter) Present(ctx context.Context, n model.Notification) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: desktop rate limit: %w", err)
	}
	title := n.Title
	if strings.TrimSpace(title) == "" {
		title = "Reminder"
	}
	ch := d.active()

	switch d.goos {
	case "linux":
		return d.run(ctx, "notify-send",
			"--app-name=remindd",
			"--urgency="+urgency(ch.Importance),
			"--category="+ch.ID,
			title, n.Message)
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s" subtitle "%s"`,
			escapeAppleScript(n.Message), escapeAppleScript(title), escapeAppleScript(ch.Name))
		return d.run(ctx, "osascript", "-e", script)
	default:
		return nil
	}
}

func urgency(i Importance) string {
	switch i {
	case ImportanceLow:
		return "low"
	case ImportanceHigh:
		return "critical"
	default:
		return "normal"
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
