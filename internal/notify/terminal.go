package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"mcxdesk/pkg/utils"
)

// TerminalNotifier prints notifications to a terminal. Notify only queues;
// a goroutine started by Start does the writing, so a slow terminal never
// blocks a fetch cycle.
type TerminalNotifier struct {
	out           io.Writer
	notifications chan Notification
	overlay       *NotificationOverlay
	mu            sync.RWMutex
	enabled       bool
	bellEnabled   bool
}

// NewTerminalNotifier creates a new TerminalNotifier writing to out.
func NewTerminalNotifier(out io.Writer, bufferSize int) *TerminalNotifier {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &TerminalNotifier{
		out:           out,
		notifications: make(chan Notification, bufferSize),
		overlay:       NewNotificationOverlay(5, 10*time.Second),
		enabled:       true,
		bellEnabled:   true,
	}
}

// Name returns the name of the notifier.
func (tn *TerminalNotifier) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (tn *TerminalNotifier) IsEnabled() bool {
	tn.mu.RLock()
	defer tn.mu.RUnlock()
	return tn.enabled
}

// SetEnabled enables or disables the notifier.
func (tn *TerminalNotifier) SetEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.enabled = enabled
}

// SetBellEnabled enables or disables the terminal bell.
func (tn *TerminalNotifier) SetBellEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.bellEnabled = enabled
}

// Overlay returns the recent-notification overlay used by watch mode.
func (tn *TerminalNotifier) Overlay() *NotificationOverlay {
	return tn.overlay
}

// Notify queues a notification. When the buffer is full the oldest queued
// notification is dropped.
func (tn *TerminalNotifier) Notify(_ context.Context, n Notification) error {
	if !tn.IsEnabled() {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	for {
		select {
		case tn.notifications <- n:
			return nil
		default:
		}
		select {
		case <-tn.notifications:
		default:
		}
	}
}

// Start starts processing notifications until ctx is done.
func (tn *TerminalNotifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-tn.notifications:
				tn.process(n)
			}
		}
	}()
}

func (tn *TerminalNotifier) process(n Notification) {
	tn.mu.RLock()
	bell := tn.bellEnabled
	tn.mu.RUnlock()

	tn.overlay.Add(n)

	if bell && n.Sound && n.Alert != nil {
		fmt.Fprint(tn.out, "\a")
	}

	if n.Level == LevelCritical {
		fmt.Fprintln(tn.out, CriticalBanner(n))
		return
	}
	fmt.Fprintln(tn.out, FormatNotification(n))
}

// FormatNotification formats a notification as one terminal line.
func FormatNotification(n Notification) string {
	var tag string
	switch n.Level {
	case LevelInfo:
		tag = color.CyanString("INFO ")
	case LevelWarning:
		tag = color.YellowString("ALERT")
	case LevelError:
		tag = color.RedString("ERROR")
	case LevelCritical:
		tag = color.New(color.FgWhite, color.BgRed, color.Bold).Sprint("CRIT ")
	default:
		tag = string(n.Level)
	}

	line := fmt.Sprintf("[%s] %s %s", n.Timestamp.Format("15:04:05"), tag, color.New(color.Bold).Sprint(n.Title))
	if n.Message != "" {
		line += " | " + n.Message
	}
	return line
}

// CriticalBanner renders the boxed warning shown for critical price moves.
func CriticalBanner(n Notification) string {
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	lines := []string{n.Title, n.Message}
	if a := n.Alert; a != nil {
		lines = []string{
			n.Title,
			fmt.Sprintf("%s  Strike %s", a.Symbol, utils.FormatStrike(a.Strike)),
			fmt.Sprintf("Price: ₹%.2f → ₹%.2f", a.OldPrice, a.NewPrice),
			fmt.Sprintf("%.2f%% Change", a.ChangePercent),
			a.Timestamp.Format("2006-01-02 15:04:05"),
		}
	}

	width := 0
	for _, l := range lines {
		if w := len([]rune(l)); w > width {
			width = w
		}
	}

	var sb strings.Builder
	sb.WriteString(red("╔" + strings.Repeat("═", width+2) + "╗"))
	sb.WriteString("\n")
	for _, l := range lines {
		pad := width - len([]rune(l))
		sb.WriteString(red("║ ") + l + strings.Repeat(" ", pad) + red(" ║"))
		sb.WriteString("\n")
	}
	sb.WriteString(red("╚" + strings.Repeat("═", width+2) + "╝"))
	return sb.String()
}

// NotificationOverlay keeps the last few notifications for watch mode.
type NotificationOverlay struct {
	notifications []Notification
	maxVisible    int
	mu            sync.RWMutex
	ttl           time.Duration
	now           func() time.Time
}

// NewNotificationOverlay creates a new notification overlay.
func NewNotificationOverlay(maxVisible int, ttl time.Duration) *NotificationOverlay {
	if maxVisible <= 0 {
		maxVisible = 5
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &NotificationOverlay{
		notifications: make([]Notification, 0, maxVisible),
		maxVisible:    maxVisible,
		ttl:           ttl,
		now:           time.Now,
	}
}

// Add adds a notification to the overlay.
func (no *NotificationOverlay) Add(n Notification) {
	no.mu.Lock()
	defer no.mu.Unlock()

	now := no.now()
	active := make([]Notification, 0, len(no.notifications)+1)
	for _, existing := range no.notifications {
		if now.Sub(existing.Timestamp) < no.ttl {
			active = append(active, existing)
		}
	}
	active = append(active, n)

	if len(active) > no.maxVisible {
		active = active[len(active)-no.maxVisible:]
	}
	no.notifications = active
}

// Visible returns the notifications that have not expired.
func (no *NotificationOverlay) Visible() []Notification {
	no.mu.RLock()
	defer no.mu.RUnlock()

	now := no.now()
	visible := make([]Notification, 0, len(no.notifications))
	for _, n := range no.notifications {
		if now.Sub(n.Timestamp) < no.ttl {
			visible = append(visible, n)
		}
	}
	return visible
}

// Clear clears all notifications.
func (no *NotificationOverlay) Clear() {
	no.mu.Lock()
	defer no.mu.Unlock()
	no.notifications = no.notifications[:0]
}

// Render renders the overlay as a block of lines.
func (no *NotificationOverlay) Render() string {
	visible := no.Visible()
	if len(visible) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("── Notifications ──\n")
	for _, n := range visible {
		sb.WriteString(FormatNotification(n))
		sb.WriteString("\n")
	}
	return sb.String()
}
