package notification

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/i18n"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	// TypeInfo is an informational notification
	TypeInfo NotificationType = "info"
	// TypeWarning is a warning notification
	TypeWarning NotificationType = "warning"
	// TypeError is an error notification
	TypeError NotificationType = "error"
)

// Notification represents a macOS notification
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
}

// Runner executes an external command
type Runner func(name string, args ...string) error

func execRunner(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationManager handles sending notifications to the user
type NotificationManager struct {
	appName string
	run     Runner
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager(appName string) *NotificationManager {
	return &NotificationManager{appName: appName, run: execRunner}
}

// NewWithRunner creates a notification manager that runs commands through run
func NewWithRunner(appName string, run Runner) *NotificationManager {
	return &NotificationManager{appName: appName, run: run}
}

// escapeAppleScript quotes s for use inside an AppleScript string literal
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Script returns the osascript source for n
func (nm *NotificationManager) Script(n *Notification) string {
	title := n.Title
	if title == "" {
		title = nm.appName
	}
	script := fmt.Sprintf(`display notification "%s" with title "%s"`,
		escapeAppleScript(n.Message), escapeAppleScript(title))
	if n.Title != "" && nm.appName != "" {
		script += fmt.Sprintf(` subtitle "%s"`, escapeAppleScript(nm.appName))
	}
	return script
}

// Send sends a notification to the user via macOS notification center
func (nm *NotificationManager) Send(n *Notification) error {
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}

	if err := nm.run("osascript", "-e", nm.Script(n)); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// SendInfo sends an informational notification
func (nm *NotificationManager) SendInfo(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeInfo})
}

// SendWarning sends a warning notification
func (nm *NotificationManager) SendWarning(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeWarning})
}

// SendError sends an error notification
func (nm *NotificationManager) SendError(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeError})
}

// Notifier turns Notice events into localized notifications
type Notifier struct {
	nm  *NotificationManager
	tr  *i18n.Translator
	log *logger.Logger
}

// NewNotifier creates a notifier
func NewNotifier(nm *NotificationManager, tr *i18n.Translator, log *logger.Logger) *Notifier {
	return &Notifier{nm: nm, tr: tr, log: log.With("component", "notification")}
}

// Render localizes a notice. Title carries the subject (usually a device
// name) and Message the detail; both are used as-is when no translation exists.
func (n *Notifier) Render(ev events.Notice) *Notification {
	params := map[string]string{"name": ev.Title, "detail": ev.Message}
	typ := TypeInfo
	switch ev.Level {
	case events.LevelWarning:
		typ = TypeWarning
	case events.LevelError:
		typ = TypeError
	}
	return &Notification{
		Title:   n.tr.TranslateOr("notice."+ev.Key+".title", ev.Title, params),
		Message: n.tr.TranslateOr("notice."+ev.Key+".message", ev.Message, params),
		Type:    typ,
	}
}

// Notify shows ev
func (n *Notifier) Notify(ev events.Notice) error {
	return n.nm.Send(n.Render(ev))
}

// Run forwards notices from bus until ctx is done
func (n *Notifier) Run(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe(16)
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			notice, isNotice := ev.(events.Notice)
			if !isNotice {
				continue
			}
			if err := n.Notify(notice); err != nil {
				n.log.Warn("failed to show notification", "key", notice.Key, "err", err)
			}
		}
	}
}
