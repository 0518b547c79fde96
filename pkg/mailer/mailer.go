package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/smtp"

	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer handles sending emails
type Mailer struct {
	config Config
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Mailer instance
func New(cfg Config) *Mailer {
	return &Mailer{config: cfg, send: smtp.SendMail}
}

// AlertData is what the alert email renders
type AlertData struct {
	RecipientName string
	RaisedBy      string
	Title         string
	Type          string
	Severity      string
	Location      *model.Location
}

// SendAlert emails one user about an emergency alert
func (m *Mailer) SendAlert(toEmail string, data AlertData) error {
	subject := "ParkSafe - Emergency alert from " + data.RaisedBy

	body, err := renderAlertTemplate(data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.deliver(toEmail, subject, body)
}

// deliver sends an HTML email via SMTP
func (m *Mailer) deliver(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.config.FromName, m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := m.send(addr, auth, m.config.From, []string{to}, msg.Bytes()); err != nil {
		log.Printf("❌ Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#111827;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#1f2937;border-radius:16px;overflow:hidden;border:1px solid rgba(239,68,68,0.3);">
        <div style="background:linear-gradient(135deg,#ef4444 0%,#b91c1c 100%);padding:32px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:28px;font-weight:700;">🚨 ParkSafe</h1>
            <p style="color:rgba(255,255,255,0.85);margin:8px 0 0;font-size:14px;">Emergency Alert</p>
        </div>

        <div style="padding:32px;">
            <p style="color:#e5e7eb;font-size:16px;line-height:1.6;margin:0 0 24px;">
                Hi <strong style="color:#fca5a5;">{{.RecipientName}}</strong>,
            </p>
            <p style="color:#9ca3af;font-size:14px;line-height:1.6;margin:0 0 24px;">
                <strong>{{.RaisedBy}}</strong> raised a <strong>{{.Type}}</strong> alert{{if .Severity}} ({{.Severity}} severity){{end}}:
            </p>
            <div style="background:rgba(239,68,68,0.1);border:2px solid rgba(239,68,68,0.4);border-radius:12px;padding:24px;text-align:center;margin:0 0 24px;">
                <span style="font-size:20px;font-weight:700;color:#f87171;">{{.Title}}</span>
            </div>
            {{if .Location}}
            <p style="color:#9ca3af;font-size:13px;line-height:1.5;margin:0 0 8px;">
                📍 Last known position: {{printf "%.5f" .Location.Lat}}, {{printf "%.5f" .Location.Lng}}
            </p>
            {{end}}
            <p style="color:#6b7280;font-size:13px;line-height:1.5;margin:0;">
                Open ParkSafe to see the alert on the map.
            </p>
        </div>

        <div style="padding:16px 32px;border-top:1px solid rgba(239,68,68,0.1);text-align:center;">
            <p style="color:#4b5563;font-size:12px;margin:0;">© 2026 ParkSafe.</p>
        </div>
    </div>
</body>
</html>`))

func renderAlertTemplate(data AlertData) (string, error) {
	var buf bytes.Buffer
	err := alertTemplate.Execute(&buf, data)
	return buf.String(), err
}

// AlertNotifier emails every other user when an alert is raised
type AlertNotifier struct {
	mailer      *Mailer
	profileRepo *repository.ProfileRepository
}

func NewAlertNotifier(m *Mailer, profileRepo *repository.ProfileRepository) *AlertNotifier {
	return &AlertNotifier{mailer: m, profileRepo: profileRepo}
}

// NotifyAlert sends one email per recipient; a failed address does not stop the rest
func (n *AlertNotifier) NotifyAlert(ctx context.Context, alert *model.Alert, raisedBy *model.Profile) error {
	recipients, err := n.profileRepo.FindAllExcept(alert.UserID)
	if err != nil {
		return err
	}

	failed := 0
	for i := range recipients {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := n.mailer.SendAlert(recipients[i].Email, AlertData{
			RecipientName: recipients[i].DisplayName(),
			RaisedBy:      raisedBy.DisplayName(),
			Title:         alert.Title(),
			Type:          alert.Type,
			Severity:      string(alert.Severity),
			Location:      alert.Location,
		})
		if err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("alert email failed for %d of %d recipients", failed, len(recipients))
	}
	return nil
}
