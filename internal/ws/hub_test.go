package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JDEditz/Messaging-Web-App/internal/models"
)

func testClient(userID int) *Client {
	return newClient(nil, ConnInfo{ConnID: newConnID(), UserID: userID, Username: "user"})
}

func receive(t *testing.T, c *Client) models.ServerEvent {
	t.Helper()
	select {
	case payload := <-c.send:
		var event models.ServerEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		return event
	default:
		t.Fatal("expected a delivered event")
		return models.ServerEvent{}
	}
}

func TestRegisterReportsFirstConnection(t *testing.T) {
	hub := NewHub()

	c1 := testClient(1)
	c2 := testClient(1)

	assert.True(t, hub.Register(c1))
	assert.False(t, hub.Register(c2))
}

func TestDeregisterReportsLastConnection(t *testing.T) {
	hub := NewHub()

	c1 := testClient(1)
	c2 := testClient(1)
	hub.Register(c1)
	hub.Register(c2)

	assert.False(t, hub.Deregister(c1))
	assert.True(t, hub.Deregister(c2))

	// A second deregister is a no-op.
	assert.False(t, hub.Deregister(c2))
}

func TestJoinAndLeaveRoom(t *testing.T) {
	hub := NewHub()

	c := testClient(1)
	hub.Register(c)

	hub.Join(c, 5)
	assert.Len(t, hub.rooms[5], 1)

	hub.Leave(c, 5)
	assert.Empty(t, hub.rooms)
}

func TestJoinWithoutRegisterIsIgnored(t *testing.T) {
	hub := NewHub()

	hub.Join(testClient(1), 5)
	assert.Empty(t, hub.rooms)
}

func TestPublishDeliversToRoomOnly(t *testing.T) {
	hub := NewHub()

	member := testClient(1)
	outsider := testClient(2)
	hub.Register(member)
	hub.Register(outsider)
	hub.Join(member, 5)

	hub.Publish(5, models.ServerEvent{Type: models.EventNewMessage, ConversationID: 5, MessageID: 7})

	event := receive(t, member)
	assert.Equal(t, models.EventNewMessage, event.Type)
	assert.Equal(t, 7, event.MessageID)
	assert.Empty(t, outsider.send)
}

func TestPublishExceptSkipsOriginator(t *testing.T) {
	hub := NewHub()

	sender := testClient(1)
	other := testClient(2)
	hub.Register(sender)
	hub.Register(other)
	hub.Join(sender, 5)
	hub.Join(other, 5)

	hub.PublishExcept(5, models.ServerEvent{Type: models.EventUserTyping, ConversationID: 5, UserID: 1}, sender)

	event := receive(t, other)
	assert.Equal(t, models.EventUserTyping, event.Type)
	assert.Empty(t, sender.send)
}

func TestBroadcastGlobalReachesAllSessions(t *testing.T) {
	hub := NewHub()

	origin := testClient(1)
	peer := testClient(2)
	peerSecond := testClient(2)
	hub.Register(origin)
	hub.Register(peer)
	hub.Register(peerSecond)

	hub.BroadcastGlobal(models.ServerEvent{Type: models.EventUserOnline, UserID: 1}, origin)

	assert.Equal(t, models.EventUserOnline, receive(t, peer).Type)
	assert.Equal(t, models.EventUserOnline, receive(t, peerSecond).Type)
	assert.Empty(t, origin.send)
}

func TestSlowClientStaysRegisteredUntilReadLoopExits(t *testing.T) {
	hub := NewHub()

	c := testClient(1)
	hub.Register(c)
	hub.Join(c, 5)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.enqueue([]byte("x")))
	}

	// A full buffer closes the connection but must not deregister it;
	// the read loop still owns the offline transition.
	hub.Publish(5, models.ServerEvent{Type: models.EventNewMessage, ConversationID: 5})

	assert.True(t, hub.Deregister(c))
}

func TestDeregisterRemovesRoomSubscriptions(t *testing.T) {
	hub := NewHub()

	c := testClient(1)
	hub.Register(c)
	hub.Join(c, 5)
	hub.Join(c, 6)

	hub.Deregister(c)
	assert.Empty(t, hub.rooms)

	// Publishing after deregistration delivers nothing.
	hub.Publish(5, models.ServerEvent{Type: models.EventNewMessage})
	assert.Empty(t, c.send)
}
