package main

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanf/dmrelay/pkg/model"
)

func (ts *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := dialWS(ts, token)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dialWS(ts *testServer, token string) (*websocket.Conn, *http.Response, error) {
	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func readEvent(t *testing.T, conn *websocket.Conn) model.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev model.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func sendFrame(t *testing.T, conn *websocket.Conn, to int64, content string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(sendRequest{To: to, Content: content}))
}

// waitOnline blocks until the user's registration lands; registration runs
// on the server's handler goroutine after the handshake, so a freshly dialed
// connection may not be routable yet.
func waitOnline(t *testing.T, ts *testServer, userID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := ts.registry.Lookup(userID)
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestConnectRejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := dialWS(ts, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectRejectsInvalidToken(t *testing.T) {
	ts := newTestServer(t)
	ts.registerUser(t, "alice", "alice@example.com")

	_, resp, err := dialWS(ts, "bogus-token")
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A rejected connection never reaches the registry.
	assert.Empty(t, ts.registry.Online())
}

func TestSendDeliversAndEchoes(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.registerUser(t, "alice", "alice@example.com")
	bob := ts.registerUser(t, "bob", "bob@example.com")

	aliceConn := ts.dial(t, alice.Token)
	bobConn := ts.dial(t, bob.Token)
	waitOnline(t, ts, alice.ID)
	waitOnline(t, ts, bob.ID)

	sendFrame(t, aliceConn, bob.ID, "hi bob")

	echo := readEvent(t, aliceConn)
	assert.Equal(t, model.EventMessage, echo.Type)
	assert.Equal(t, alice.ID, echo.FromID)
	assert.Equal(t, bob.ID, echo.ToID)
	assert.Equal(t, "hi bob", echo.Content)
	assert.False(t, echo.Timestamp.IsZero())

	delivered := readEvent(t, bobConn)
	assert.Equal(t, echo, delivered)
}

func TestOfflineRecipientCatchesUpViaHistory(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.registerUser(t, "alice", "alice@example.com")
	bob := ts.registerUser(t, "bob", "bob@example.com")

	aliceConn := ts.dial(t, alice.Token)

	sendFrame(t, aliceConn, bob.ID, "hi")
	echo := readEvent(t, aliceConn)
	require.Equal(t, model.EventMessage, echo.Type)

	// Bob was offline for the send; history has the message.
	var messages []model.Message
	resp := ts.getJSON(t, fmt.Sprintf("/api/messages/%d", alice.ID), bob.Token, &messages)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, messages, 1)
	assert.Equal(t, alice.ID, messages[0].FromID)
	assert.Equal(t, bob.ID, messages[0].ToID)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, echo.Timestamp.Unix(), messages[0].Timestamp.Unix())
}

func TestEmptyContentGetsValidationError(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.registerUser(t, "alice", "alice@example.com")
	bob := ts.registerUser(t, "bob", "bob@example.com")

	aliceConn := ts.dial(t, alice.Token)

	sendFrame(t, aliceConn, bob.ID, "   ")
	ev := readEvent(t, aliceConn)
	assert.Equal(t, model.EventError, ev.Type)
	assert.Equal(t, model.CodeValidation, ev.Code)

	// Nothing was persisted.
	var messages []model.Message
	resp := ts.getJSON(t, fmt.Sprintf("/api/messages/%d", bob.ID), alice.Token, &messages)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, messages)
}

func TestMalformedFrameGetsValidationError(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.registerUser(t, "alice", "alice@example.com")

	aliceConn := ts.dial(t, alice.Token)
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	ev := readEvent(t, aliceConn)
	assert.Equal(t, model.EventError, ev.Type)
	assert.Equal(t, model.CodeValidation, ev.Code)
}

func TestSecondConnectionSupersedesFirst(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.registerUser(t, "alice", "alice@example.com")
	bob := ts.registerUser(t, "bob", "bob@example.com")

	bobFirst := ts.dial(t, bob.Token)
	require.Eventually(t, func() bool {
		_, ok := ts.registry.Lookup(bob.ID)
		return ok
	}, time.Second, 10*time.Millisecond)
	firstHandle, _ := ts.registry.Lookup(bob.ID)

	bobSecond := ts.dial(t, bob.Token)
	aliceConn := ts.dial(t, alice.Token)

	// Wait for the second registration to supersede the first.
	require.Eventually(t, func() bool {
		conn, ok := ts.registry.Lookup(bob.ID)
		return ok && conn != firstHandle
	}, time.Second, 10*time.Millisecond)

	sendFrame(t, aliceConn, bob.ID, "which connection?")
	readEvent(t, aliceConn) // echo

	// Only the most recent registration receives the delivery.
	delivered := readEvent(t, bobSecond)
	assert.Equal(t, "which connection?", delivered.Content)

	bobFirst.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray model.Event
	assert.Error(t, bobFirst.ReadJSON(&stray))
}

func TestDisconnectRemovesPresence(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.registerUser(t, "alice", "alice@example.com")

	conn := ts.dial(t, alice.Token)
	require.Eventually(t, func() bool {
		_, ok := ts.registry.Lookup(alice.ID)
		return ok
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		_, ok := ts.registry.Lookup(alice.ID)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestPerConnectionSendOrderIsPreserved(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.registerUser(t, "alice", "alice@example.com")
	bob := ts.registerUser(t, "bob", "bob@example.com")

	aliceConn := ts.dial(t, alice.Token)
	bobConn := ts.dial(t, bob.Token)
	waitOnline(t, ts, alice.ID)
	waitOnline(t, ts, bob.ID)

	const count = 10
	for i := 0; i < count; i++ {
		sendFrame(t, aliceConn, bob.ID, fmt.Sprintf("msg-%d", i))
	}

	var prevID int64
	for i := 0; i < count; i++ {
		ev := readEvent(t, bobConn)
		require.Equal(t, fmt.Sprintf("msg-%d", i), ev.Content)
		require.Greater(t, ev.ID, prevID)
		prevID = ev.ID
	}
}
