package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"zomatoclean/pkg/contracts/events"
)

// fakeConn blocks in ReadMessage until closed and records every write
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	kinds   []int
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 8),
		closed:  make(chan struct{}),
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, messageType)
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return gorilla.TextMessage, msg, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error    { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetReadLimit(int64)                 {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string                 { return "127.0.0.1:9000" }

func (f *fakeConn) textMessages(t *testing.T) []events.WebSocketMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []events.WebSocketMessage
	for i, data := range f.written {
		if f.kinds[i] != gorilla.TextMessage {
			continue
		}
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		out = append(out, msg)
	}
	return out
}

func (f *fakeConn) waitForMessages(t *testing.T, n int) []events.WebSocketMessage {
	t.Helper()
	var msgs []events.WebSocketMessage
	require.Eventually(t, func() bool {
		msgs = f.textMessages(t)
		return len(msgs) >= n
	}, 2*time.Second, 10*time.Millisecond)
	return msgs
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger(), nil)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHubSendsConnectMessage(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn()

	client := ServeWS(hub, conn, "trace-1", testLogger())

	msgs := conn.waitForMessages(t, 1)
	assert.Equal(t, events.MessageTypeConnect, msgs[0].Type)
	assert.Equal(t, client.ID(), msgs[0].ID)
	assert.Equal(t, "trace-1", msgs[0].TraceID)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubReplaysSnapshotsOnConnect(t *testing.T) {
	hub := startHub(t)
	hub.SetSnapshotSource(func() []*events.OperationSnapshot {
		return []*events.OperationSnapshot{
			{OperationID: "run-1", Status: events.StatusCompleted, Progress: 100},
		}
	})
	conn := newFakeConn()

	ServeWS(hub, conn, "", testLogger())

	msgs := conn.waitForMessages(t, 2)
	assert.Equal(t, events.MessageTypeOperationSnapshot, msgs[1].Type)
	assert.Equal(t, "run-1", msgs[1].Step)
	assert.Equal(t, events.StatusCompleted, msgs[1].Status)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := startHub(t)
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	for _, conn := range conns {
		ServeWS(hub, conn, "", testLogger())
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.BroadcastUpdate(string(events.MessageTypeOperationSnapshot), "run-9", events.StatusRunning,
		&events.OperationSnapshot{OperationID: "run-9", Status: events.StatusRunning, Progress: 40})

	for _, conn := range conns {
		msgs := conn.waitForMessages(t, 2)
		last := msgs[len(msgs)-1]
		assert.Equal(t, events.MessageTypeOperationSnapshot, last.Type)
		assert.Equal(t, events.StatusRunning, last.Status)

		data, ok := last.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "run-9", data["operation_id"])
		assert.EqualValues(t, 40, data["progress"])
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn()
	ServeWS(hub, conn, "", testLogger())
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubIgnoresHeartbeats(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn()
	ServeWS(hub, conn, "", testLogger())
	conn.waitForMessages(t, 1)

	conn.inbound <- []byte(`{"type":"heartbeat"}`)
	conn.inbound <- []byte("anything else")

	// the client stays connected
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestBroadcastWithoutRunningHubIsDropped(t *testing.T) {
	hub := NewHub(testLogger(), nil)

	assert.NotPanics(t, func() {
		hub.BroadcastUpdate("operation:snapshot", "run", events.StatusPending, nil)
	})
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, false, hub.Stats()["running"])
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	hub.Start()
	conn := newFakeConn()
	ServeWS(hub, conn, "", testLogger())
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Stop()
	hub.Stop()

	assert.Equal(t, 0, hub.ClientCount())
	select {
	case <-conn.closed:
	case <-time.After(time.Second):
		t.Fatal("connection was not closed")
	}
}

func TestHubRecordsMetrics(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	hub := NewHub(testLogger(), metrics)
	hub.Start()
	t.Cleanup(hub.Stop)

	conn := newFakeConn()
	ServeWS(hub, conn, "", testLogger())
	conn.waitForMessages(t, 1)
	hub.BroadcastUpdate("operation:snapshot", "run", events.StatusRunning, nil)
	conn.waitForMessages(t, 2)

	assert.Eventually(t, func() bool {
		stats := hub.Stats()
		return stats["total_connections"] == int64(1) && stats["messages_sent"] == int64(1)
	}, time.Second, 10*time.Millisecond)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordConnection(context.Background())
		m.RecordDisconnection(context.Background(), time.Second, "normal")
		m.RecordMessage(context.Background(), "outbound", 10)
		m.RecordBroadcast(context.Background(), "x", 1)
	})
}
