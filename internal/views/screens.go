package views

import (
	"fmt"
	"strings"
)

type PendingPanelData struct {
	TableView string
	Count     int
}

type ReminderDetailData struct {
	Code    string
	NoteID  string
	Title   string
	Message string
	When    string
	Repeat  string
	// ArmedAt is empty when no wake-up is registered.
	ArmedAt string
}

type AgendaItemData struct {
	Code   string
	Time   string
	Repeat string
	Title  string
}

type AgendaDayData struct {
	Date   string
	Marked bool
	Items  []AgendaItemData
}

type DeliveryData struct {
	At      string
	Code    string
	Channel string
	Title   string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderPendingPanel(data PendingPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("pending (%d):\n", data.Count))
	if data.Count == 0 {
		b.WriteString("(no reminders, try /remind - 2025-01-01 09:00 none title)")
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderReminderDetail(data ReminderDetailData) string {
	if strings.TrimSpace(data.Code) == "" {
		return "reminder:\n(no selection)"
	}
	armed := "not armed"
	if data.ArmedAt != "" {
		armed = "armed for " + data.ArmedAt
	}
	out := fmt.Sprintf("reminder: %s\nnote: %s\nwhen: %s\nrepeat: %s\nwake-up: %s\n\n%s",
		data.Code,
		data.NoteID,
		data.When,
		data.Repeat,
		armed,
		RenderMarkdown("**"+data.Title+"**\n\n"+data.Message),
	)
	return strings.TrimSpace(out)
}

func RenderAgendaPanel(days []AgendaDayData) string {
	var b strings.Builder
	b.WriteString("agenda:\n")
	for _, day := range days {
		marker := " "
		if day.Marked {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("\n%s %s\n", marker, day.Date))
		if len(day.Items) == 0 {
			b.WriteString("  -\n")
			continue
		}
		for _, item := range day.Items {
			b.WriteString(fmt.Sprintf("  %s %s [%s] %s\n", item.Time, item.Code, strings.ToUpper(item.Repeat), item.Title))
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderIndicatorPanel(dates []string) string {
	if len(dates) == 0 {
		return "one-shot days:\n(none upcoming)"
	}
	return "one-shot days:\n- " + strings.Join(dates, "\n- ")
}

func RenderLogPanel(items []DeliveryData) string {
	if len(items) == 0 {
		return "deliveries:\n(none yet)"
	}
	var b strings.Builder
	b.WriteString("deliveries:\n")
	for _, item := range items {
		b.WriteString(fmt.Sprintf("%s %s [%s] %s\n", item.At, item.Code, item.Channel, item.Title))
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	line := fmt.Sprintf("[%s] %s", strings.ToUpper(level), body)
	if level == "warn" {
		return warnStyle.Render(line)
	}
	return line
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
