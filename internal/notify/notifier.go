// Package notify presents desktop notifications for due reminders.
// Delivery is best effort: commands are spawned and forgotten, and no
// platform reports back whether the user saw anything.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/illufoxKusanagi/daily-reminder/internal/models"
)

// Notifier is the side-effect sink the scheduler fires reminders through.
type Notifier interface {
	Show(event *models.Event) error
}

// Desktop is a Notifier backed by the host's notification command,
// selected by operating system.
type Desktop struct {
	log zerolog.Logger
	// goos is overridable in tests
	goos string
}

// NewDesktop creates a notifier for the current operating system.
func NewDesktop(log zerolog.Logger) *Desktop {
	return &Desktop{log: log, goos: runtime.GOOS}
}

// Show displays a desktop notification for the event and plays an alert
// sound where the platform supports one. The subprocesses detach and run
// to completion on their own.
func (n *Desktop) Show(event *models.Event) error {
	title := event.Title
	body := event.Description
	if body == "" {
		body = event.Category
	}

	switch n.goos {
	case "windows":
		return n.showWindows(title, body)
	case "darwin":
		return n.showDarwin(title, body)
	default:
		return n.showUnix(title, body)
	}
}

func (n *Desktop) showUnix(title, body string) error {
	err := n.spawn("notify-send",
		"--urgency=critical",
		"--expire-time=10000",
		"--app-name=Daily Reminder",
		title, body)
	if err != nil {
		return fmt.Errorf("notify-send failed: %v", err)
	}

	n.playUnixSound()
	return nil
}

// alarm sound candidates, tried in order; missing players or files are
// tolerated silently
var unixSounds = []struct {
	player string
	file   string
}{
	{"paplay", "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga"},
	{"paplay", "/usr/share/sounds/freedesktop/stereo/complete.oga"},
	{"aplay", "/usr/share/sounds/alsa/Front_Center.wav"},
	{"play", "/usr/share/sounds/freedesktop/stereo/bell.oga"},
}

func (n *Desktop) playUnixSound() {
	for _, s := range unixSounds {
		if n.spawn(s.player, s.file) == nil {
			return
		}
	}
	n.log.Debug().Msg("No audio player available for alert sound")
}

func (n *Desktop) showDarwin(title, body string) error {
	script := fmt.Sprintf("display notification %q with title %q sound name \"Glass\"", body, title)
	if err := n.spawn("osascript", "-e", script); err != nil {
		return fmt.Errorf("osascript failed: %v", err)
	}
	return nil
}

func (n *Desktop) showWindows(title, body string) error {
	// Balloon tip through the tray icon, 10 s timeout, then a console beep.
	script := fmt.Sprintf(`
		Add-Type -AssemblyName System.Windows.Forms
		$tray = New-Object System.Windows.Forms.NotifyIcon
		$tray.Icon = [System.Drawing.SystemIcons]::Information
		$tray.Visible = $true
		$tray.ShowBalloonTip(10000, %q, %q, [System.Windows.Forms.ToolTipIcon]::Warning)
		[console]::beep(880, 500)
	`, title, body)
	if err := n.spawn("powershell", "-NoProfile", "-Command", script); err != nil {
		return fmt.Errorf("powershell notification failed: %v", err)
	}
	return nil
}

// spawn starts cmd detached and releases the process handle so it outlives
// a shutdown of this process.
func (n *Desktop) spawn(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}

	return cmd.Process.Release()
}
