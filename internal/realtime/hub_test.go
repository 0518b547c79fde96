package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, userID uuid.UUID) *Client {
	c := NewClient(h, nil, userID)
	h.addClient(c)
	return c
}

func readFrame(t *testing.T, c *Client) model.WSEvent {
	t.Helper()
	select {
	case data := <-c.send:
		var event model.WSEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return model.WSEvent{}
	}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame: %s", data)
	default:
	}
}

// subscribe sends a subscribe frame and consumes its ack
func subscribe(t *testing.T, c *Client, table string, kinds ...model.ChangeKind) {
	t.Helper()
	c.handle(model.WSEvent{Type: model.WSEventSubscribe, Payload: model.SubscribePayload{Table: table, Events: kinds}})

	ack := readFrame(t, c)
	require.Equal(t, model.WSEventSubscribed, ack.Type)
	require.Equal(t, table, ack.Payload.(map[string]interface{})["table"])
}

func TestHub_DeliversOnlyToSubscribedTables(t *testing.T) {
	h := NewHub(nil)
	alice := newTestClient(h, uuid.New())
	subscribe(t, alice, model.TableAlerts, model.ChangeInsert)

	h.Publish(model.ChangeEvent{Table: model.TableMessages, Event: model.ChangeInsert, Record: map[string]string{"id": "m1"}}, model.Audience{})
	requireNoFrame(t, alice)

	h.Publish(model.ChangeEvent{Table: model.TableAlerts, Event: model.ChangeUpdate, Record: map[string]string{"id": "a1"}}, model.Audience{})
	requireNoFrame(t, alice)

	h.Publish(model.ChangeEvent{Table: model.TableAlerts, Event: model.ChangeInsert, Record: map[string]string{"id": "a2"}}, model.Audience{})
	frame := readFrame(t, alice)
	require.Equal(t, model.WSEventChange, frame.Type)

	payload := frame.Payload.(map[string]interface{})
	require.Equal(t, model.TableAlerts, payload["table"])
	require.Equal(t, "INSERT", payload["event"])
	require.Equal(t, "a2", payload["record"].(map[string]interface{})["id"])
}

func TestHub_RespectsAudience(t *testing.T) {
	h := NewHub(nil)
	aliceID, bobID := uuid.New(), uuid.New()
	alice := newTestClient(h, aliceID)
	bob := newTestClient(h, bobID)
	for _, c := range []*Client{alice, bob} {
		subscribe(t, c, model.TableMessages)
	}

	h.Publish(model.ChangeEvent{Table: model.TableMessages, Event: model.ChangeInsert, Record: "direct"},
		model.Audience{UserIDs: []uuid.UUID{aliceID}})
	readFrame(t, alice)
	requireNoFrame(t, bob)

	h.Publish(model.ChangeEvent{Table: model.TableMessages, Event: model.ChangeInsert, Record: "everyone but alice"},
		model.Audience{Exclude: aliceID})
	requireNoFrame(t, alice)
	readFrame(t, bob)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h, uuid.New())
	subscribe(t, c, model.TableMessages)
	c.handle(model.WSEvent{Type: model.WSEventUnsubscribe, Payload: model.SubscribePayload{Table: model.TableMessages}})
	require.Equal(t, model.WSEventUnsubscribed, readFrame(t, c).Type)

	h.Publish(model.ChangeEvent{Table: model.TableMessages, Event: model.ChangeInsert, Record: "x"}, model.Audience{})
	requireNoFrame(t, c)
}

func TestClient_RejectsUnknownTable(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h, uuid.New())
	c.handle(model.WSEvent{Type: model.WSEventSubscribe, Payload: model.SubscribePayload{Table: "secrets"}})

	frame := readFrame(t, c)
	require.Equal(t, model.WSEventError, frame.Type)
}

func TestClient_PingPong(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h, uuid.New())
	c.handle(model.WSEvent{Type: model.WSEventPing})

	require.Equal(t, model.WSEventPong, readFrame(t, c).Type)
}

func TestHub_RemoveClientIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	userID := uuid.New()
	c := newTestClient(h, userID)
	require.Equal(t, []uuid.UUID{userID}, h.ConnectedUsers())

	h.removeClient(c)
	h.removeClient(c)
	require.Empty(t, h.ConnectedUsers())
}
