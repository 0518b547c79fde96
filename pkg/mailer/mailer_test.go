package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"github.com/parksafe/parksafe/internal/testutil"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	to   []string
	body string
}

func newTestMailer(fail map[string]bool) (*Mailer, *[]sentMail) {
	var mu sync.Mutex
	sent := []sentMail{}
	m := New(Config{Host: "mailpit", Port: "1025", From: "alerts@parksafe.local", FromName: "ParkSafe"})
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		if fail[to[0]] {
			return errors.New("mailbox unavailable")
		}
		sent = append(sent, sentMail{addr: addr, to: to, body: string(msg)})
		return nil
	}
	return m, &sent
}

func TestRenderAlertTemplate(t *testing.T) {
	body, err := renderAlertTemplate(AlertData{
		RecipientName: "Bob",
		RaisedBy:      "Alice",
		Title:         "Bear near the trailhead",
		Type:          "broadcast",
		Severity:      "high",
		Location:      &model.Location{Lat: 35.6532, Lng: -83.507},
	})
	require.NoError(t, err)
	require.Contains(t, body, "Bear near the trailhead")
	require.Contains(t, body, "high severity")
	require.Contains(t, body, "35.65320, -83.50700")
}

func TestSendAlert_Headers(t *testing.T) {
	m, sent := newTestMailer(nil)
	require.NoError(t, m.SendAlert("bob@example.com", AlertData{RaisedBy: "Alice", Title: "Help", Type: "panic"}))

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	require.Equal(t, "mailpit:1025", mail.addr)
	require.Equal(t, []string{"bob@example.com"}, mail.to)
	require.True(t, strings.HasPrefix(mail.body, "From: ParkSafe <alerts@parksafe.local>\r\n"))
	require.Contains(t, mail.body, "Subject: ParkSafe - Emergency alert from Alice\r\n")
}

func TestAlertNotifier_EmailsEveryoneButTheOwner(t *testing.T) {
	db := testutil.OpenDB(t)
	owner := testutil.CreateProfile(t, db, "alice@example.com", "Alice")
	testutil.CreateProfile(t, db, "bob@example.com", "Bob")
	testutil.CreateProfile(t, db, "carol@example.com", "")

	m, sent := newTestMailer(map[string]bool{"carol@example.com": true})
	n := NewAlertNotifier(m, repository.NewProfileRepository(db))

	err := n.NotifyAlert(context.Background(), &model.Alert{UserID: owner.ID, Type: "panic"}, owner)
	require.EqualError(t, err, "alert email failed for 1 of 2 recipients")

	require.Len(t, *sent, 1)
	require.Equal(t, []string{"bob@example.com"}, (*sent)[0].to)
	require.Contains(t, (*sent)[0].body, "New panic alert")
}
