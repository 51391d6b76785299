package geofence

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// DesktopNotifier shows the notification through the host's notification
// daemon (notify-send on Linux, osascript on macOS). Other platforms are a no-op.
type DesktopNotifier struct {
	// run is replaced in tests.
	run func(ctx context.Context, name string, args ...string) error
}

func NewDesktopNotifier() DesktopNotifier {
	return DesktopNotifier{run: func(ctx context.Context, name string, args ...string) error {
		return exec.CommandContext(ctx, name, args...).Run()
	}}
}

func (d DesktopNotifier) Notify(ctx context.Context, n Notification) error {
	name, args, ok := desktopCommand(runtime.GOOS, n)
	if !ok || d.run == nil {
		return nil
	}
	if err := d.run(ctx, name, args...); err != nil {
		return fmt.Errorf("desktop notify: %w", err)
	}
	return nil
}

func desktopCommand(goos string, n Notification) (string, []string, bool) {
	switch goos {
	case "linux":
		return "notify-send", []string{n.Title, n.Body}, true
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return "osascript", []string{"-e", script}, true
	default:
		return "", nil, false
	}
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
