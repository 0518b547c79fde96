package main

import (
	"fmt"
	"time"

	"github.com/parksafe/parksafe/internal/model"
)

func displayName(p model.ProfileResponse) string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}

func formatMessage(m *model.Message) string {
	sender := m.SenderID.String()[:8]
	if m.Sender != nil {
		sender = m.Sender.DisplayName()
	}
	prefix := ""
	if m.Type == model.MessageTypeEmergency {
		prefix = "🚨 "
	}
	return fmt.Sprintf("%s  %s%s (%s): %s",
		m.CreatedAt.Local().Format("15:04"), prefix, sender, messageTarget(m), m.Content)
}

func formatAlert(a *model.Alert) string {
	line := fmt.Sprintf("%s  🚨 ALERT %s [%s] %s", a.CreatedAt.Local().Format("15:04"), a.Type, a.ID.String()[:8], a.Title())
	if a.Severity != "" {
		line += " severity=" + string(a.Severity)
	}
	if a.Location != nil {
		line += fmt.Sprintf(" at %.5f,%.5f", a.Location.Lat, a.Location.Lng)
	}
	return line
}

// formatAge renders a duration as 3s, 5m or 2h
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
