package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictive-maintenance-backend/internal/model"
)

func startHub(t *testing.T) (string, *Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(hub)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub, cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 5*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestHub_PublishReachesClients(t *testing.T) {
	url, hub, _ := startHub(t)
	all := dial(t, url)
	only7 := dial(t, url+"?machine_id=7")
	waitForClients(t, hub, 2)

	hub.Publish(
		model.SensorReading{ID: 1, MachineID: 3, Temperature: 55},
		model.SensorReading{ID: 2, MachineID: 7, Temperature: 66},
	)

	m := readMessage(t, all)
	assert.Equal(t, "reading", m.Event)
	assert.Equal(t, int64(1), m.Data.ID)
	assert.Equal(t, int64(2), readMessage(t, all).Data.ID)

	m = readMessage(t, only7)
	assert.Equal(t, int64(7), m.Data.MachineID)
	assert.Equal(t, 66.0, m.Data.Temperature)
}

func TestHub_RejectsBadMachineID(t *testing.T) {
	url, _, _ := startHub(t)
	_, resp, err := websocket.DefaultDialer.Dial(url+"?machine_id=abc", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	url, hub, cancel := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	cancel()
	waitForClients(t, hub, 0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	url, hub, _ := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}
