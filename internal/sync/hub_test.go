package sync

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resenas/pkg/models"
)

func TestWebSocketFeed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"type":"welcome"`)

	require.Eventually(t, func() bool { return hub.Stats().WSClients == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastJSON(ReviewEvent{
		Type:   EventCreated,
		ID:     1,
		Review: &models.Review{ID: 1, Authors: []string{"A"}, Title: "T"},
		At:     time.Now().UTC(),
	})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err = ws.ReadMessage()
	require.NoError(t, err)

	var ev ReviewEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventCreated, ev.Type)
	assert.Equal(t, int64(1), ev.ID)
	require.NotNil(t, ev.Review)
	assert.Equal(t, "T", ev.Review.Title)
}

func TestTCPFeed(t *testing.T) {
	hub := NewHub(nil)
	srv := NewServer("127.0.0.1:0", hub, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	require.Eventually(t, func() bool { return srv.ListenAddr() != nil }, time.Second, 10*time.Millisecond)

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	rd := bufio.NewReader(conn)
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"transport":"tcp"`)

	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastJSON(ReviewEvent{Type: EventDeleted, ID: 7, At: time.Now().UTC()})

	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	var ev ReviewEvent
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	assert.Equal(t, EventDeleted, ev.Type)
	assert.Equal(t, int64(7), ev.ID)
	assert.Nil(t, ev.Review)

	require.NoError(t, srv.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestBroadcastDropsClosedSubscriber(t *testing.T) {
	hub := NewHub(nil)
	a, b := net.Pipe()
	hub.Add(a)
	_ = b.Close()

	hub.BroadcastJSON(map[string]string{"type": "ping"})
	assert.Equal(t, 0, hub.Stats().TCPClients)
}

func TestServerCloseBeforeRun(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHub(nil), nil)
	require.NoError(t, srv.Close())

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept listening after Close")
	}
	assert.Nil(t, srv.ListenAddr())
}

func TestServerCloseDisconnectsSubscribers(t *testing.T) {
	hub := NewHub(nil)
	srv := NewServer("127.0.0.1:0", hub, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	require.Eventually(t, func() bool { return srv.ListenAddr() != nil }, time.Second, 10*time.Millisecond)

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	rd := bufio.NewReader(conn)
	_, err = rd.ReadString('\n')
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Close())
	require.NoError(t, <-done)

	_, err = rd.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, hub.Stats().TCPClients)
	assert.NoError(t, srv.Close(), "second Close is a no-op")
}
