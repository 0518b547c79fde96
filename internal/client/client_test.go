package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parksafe/parksafe/internal/client"
	"github.com/parksafe/parksafe/internal/feed"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/testutil/apitest"
	"github.com/stretchr/testify/require"
)

func signUp(t *testing.T, srv *apitest.Server, email, name string) (*client.Client, model.ProfileResponse) {
	t.Helper()
	c := client.New(srv.URL)
	t.Cleanup(c.Close)

	resp, err := c.Register(context.Background(), email, "hunter22", name)
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
	return c, resp.Profile
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, feed.ErrValidation},
		{http.StatusConflict, feed.ErrValidation},
		{http.StatusUnprocessableEntity, feed.ErrValidation},
		{http.StatusNotFound, feed.ErrNotFound},
		{http.StatusUnauthorized, feed.ErrTransport},
		{http.StatusInternalServerError, feed.ErrTransport},
		{http.StatusBadGateway, feed.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(model.ErrorResponse{Error: "nope"})
			}))
			defer srv.Close()

			_, err := client.New(srv.URL).PointRead(context.Background(), model.TableMessages, "x")
			require.ErrorIs(t, err, tt.want)
			require.Contains(t, err.Error(), "nope")

			var statusErr *client.StatusError
			require.True(t, errors.As(err, &statusErr))
			require.Equal(t, tt.status, statusErr.Status)
		})
	}
}

func TestClient_UnreachableServerIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.New(url).BulkRead(context.Background(), model.TableAlerts, feed.Query{Limit: 5})
	require.ErrorIs(t, err, feed.ErrTransport)
}

func TestClient_RejectsUnknownTableAndOrder(t *testing.T) {
	c := client.New("http://127.0.0.1:1")

	_, err := c.BulkRead(context.Background(), "secrets", feed.Query{})
	require.ErrorIs(t, err, feed.ErrValidation)

	_, err = c.BulkRead(context.Background(), model.TableMessages, feed.Query{OrderBy: "content"})
	require.ErrorIs(t, err, feed.ErrValidation)
}

func TestClient_WriteReadAndPush(t *testing.T) {
	srv := apitest.NewServer(t)
	alice, aliceProfile := signUp(t, srv, "alice@parksafe.test", "Alice")
	bob, _ := signUp(t, srv, "bob@parksafe.test", "Bob")

	pushed := make(chan feed.Event, 4)
	sub, err := alice.Subscribe(context.Background(), model.TableMessages, []feed.EventKind{feed.EventInsert}, func(ev feed.Event) {
		pushed <- ev
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	raw, err := bob.Write(context.Background(), model.TableMessages, model.SendMessageRequest{
		Content:     "storm rolling in",
		RecipientID: &aliceProfile.ID,
	})
	require.NoError(t, err)

	var written model.Message
	require.NoError(t, json.Unmarshal(raw, &written))
	require.True(t, written.Complete(), "write response carries the sender")

	var ev feed.Event
	select {
	case ev = <-pushed:
	case <-time.After(5 * time.Second):
		t.Fatal("no push received")
	}
	require.Equal(t, model.TableMessages, ev.Table)
	require.Equal(t, feed.EventInsert, ev.Kind)

	var bare model.Message
	require.NoError(t, json.Unmarshal(ev.Record, &bare))
	require.Equal(t, written.ID, bare.ID)
	require.False(t, bare.Complete(), "the change feed carries the stored row only")

	raw, err = alice.PointRead(context.Background(), model.TableMessages, bare.Key())
	require.NoError(t, err)
	var full model.Message
	require.NoError(t, json.Unmarshal(raw, &full))
	require.True(t, full.Complete())
	require.Equal(t, "Bob", full.Sender.DisplayName())

	rows, err := alice.BulkRead(context.Background(), model.TableMessages, feed.Query{OrderBy: "created_at", Descending: true, Limit: 50})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestClient_ValidationAndNotFound(t *testing.T) {
	srv := apitest.NewServer(t)
	alice, aliceProfile := signUp(t, srv, "alice@parksafe.test", "Alice")

	_, err := alice.Write(context.Background(), model.TableMessages, model.SendMessageRequest{
		Content:     "   ",
		RecipientID: &aliceProfile.ID,
	})
	require.ErrorIs(t, err, feed.ErrValidation)

	_, err = alice.PointRead(context.Background(), model.TableMessages, "5a3c9e0e-0000-4000-8000-000000000000")
	require.ErrorIs(t, err, feed.ErrNotFound)
}

func TestClient_AlertsFilter(t *testing.T) {
	srv := apitest.NewServer(t)
	alice, _ := signUp(t, srv, "alice@parksafe.test", "Alice")
	ctx := context.Background()

	raw, err := alice.Write(ctx, model.TableAlerts, model.CreateAlertRequest{Type: model.AlertTypePanic, Message: "twisted ankle"})
	require.NoError(t, err)
	var first model.Alert
	require.NoError(t, json.Unmarshal(raw, &first))

	_, err = alice.Write(ctx, model.TableAlerts, model.CreateAlertRequest{Type: model.AlertTypeBroadcast, Message: "trail closed"})
	require.NoError(t, err)

	resolved, err := alice.ResolveAlert(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusResolved, resolved.Status)

	rows, err := alice.BulkRead(ctx, model.TableAlerts, feed.Query{
		Filter: map[string]string{"status": string(model.AlertStatusActive)},
		Limit:  5,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var active model.Alert
	require.NoError(t, json.Unmarshal(rows[0], &active))
	require.Equal(t, "trail closed", active.Message)
}

func TestClient_LocationsAndActiveUsers(t *testing.T) {
	srv := apitest.NewServer(t)
	alice, _ := signUp(t, srv, "alice@parksafe.test", "Alice")
	bob, _ := signUp(t, srv, "bob@parksafe.test", "Bob")
	ctx := context.Background()

	_, err := bob.UpdateLocation(ctx, 35.6532, -83.5070)
	require.NoError(t, err)

	users, err := alice.ActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "bob@parksafe.test", users[0].Email)
	require.NotNil(t, users[0].Location)
	require.InDelta(t, 35.6532, users[0].Location.Lat, 1e-9)
}

func TestClient_LogoutRevokesToken(t *testing.T) {
	srv := apitest.NewServer(t)
	alice, _ := signUp(t, srv, "alice@parksafe.test", "Alice")
	token := alice.Token()

	require.NoError(t, alice.Logout(context.Background()))
	require.Empty(t, alice.Token())

	stale := client.New(srv.URL)
	stale.SetToken(token)
	_, err := stale.Profile(context.Background())

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.Status)
}

func TestClient_FeedOverTheWire(t *testing.T) {
	srv := apitest.NewServer(t)
	alice, aliceProfile := signUp(t, srv, "alice@parksafe.test", "Alice")
	bob, _ := signUp(t, srv, "bob@parksafe.test", "Bob")

	messages := feed.New(alice, feed.Config[*model.Message]{
		Table:          model.TableMessages,
		Query:          feed.Query{OrderBy: "created_at", Descending: true, Limit: 50},
		Decode:         feed.Decoder[model.Message](),
		ResolvePartial: true,
	})
	require.NoError(t, messages.Initialize(context.Background()))
	defer messages.Teardown()

	_, err := bob.Write(context.Background(), model.TableMessages, model.SendMessageRequest{
		Content:     "see you at the overlook",
		RecipientID: &aliceProfile.ID,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := messages.State()
		return len(st.Records) == 1 && st.Records[0].Complete()
	}, 5*time.Second, 20*time.Millisecond)

	got := messages.State().Records[0]
	require.Equal(t, "Bob", got.Sender.DisplayName())
}

func TestClient_SlowMessageJoinDoesNotDelayAlerts(t *testing.T) {
	stalled := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := apitest.NewServer(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/messages/") {
				select {
				case stalled <- struct{}{}:
				default:
				}
				<-release
			}
			next.ServeHTTP(w, r)
		})
	})
	var releaseOnce sync.Once
	unstall := func() { releaseOnce.Do(func() { close(release) }) }
	t.Cleanup(unstall)

	alice, aliceProfile := signUp(t, srv, "alice@parksafe.test", "Alice")
	bob, _ := signUp(t, srv, "bob@parksafe.test", "Bob")

	messages := feed.New(alice, feed.Config[*model.Message]{
		Table:          model.TableMessages,
		Query:          feed.Query{OrderBy: "created_at", Descending: true, Limit: 50},
		Decode:         feed.Decoder[model.Message](),
		ResolvePartial: true,
	})
	require.NoError(t, messages.Initialize(context.Background()))
	defer messages.Teardown()

	alerts := feed.New(alice, feed.Config[*model.Alert]{
		Table:    model.TableAlerts,
		Query:    feed.Query{Filter: map[string]string{"status": "active"}, OrderBy: "created_at", Descending: true, Limit: 5},
		Capacity: 5,
		Decode:   feed.Decoder[model.Alert](),
	})
	require.NoError(t, alerts.Initialize(context.Background()))
	defer alerts.Teardown()

	_, err := bob.Write(context.Background(), model.TableMessages, model.SendMessageRequest{
		Content:     "are you ok?",
		RecipientID: &aliceProfile.ID,
	})
	require.NoError(t, err)

	select {
	case <-stalled:
	case <-time.After(5 * time.Second):
		t.Fatal("message push never triggered a point read")
	}

	_, err = bob.Write(context.Background(), model.TableAlerts, model.CreateAlertRequest{Type: model.AlertTypePanic, Message: "fell on the trail"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(alerts.State().Records) == 1 }, 2*time.Second, 20*time.Millisecond,
		"alert push waited behind the message point read")
	require.Empty(t, messages.State().Records)

	unstall()
	require.Eventually(t, func() bool {
		st := messages.State()
		return len(st.Records) == 1 && st.Records[0].Complete()
	}, 5*time.Second, 20*time.Millisecond)
}
