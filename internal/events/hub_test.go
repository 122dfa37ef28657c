package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/observability"
)

func dialHub(t *testing.T, h *Hub, query string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHub_StreamsEvents(t *testing.T) {
	metrics := observability.NewMetrics("", prometheus.NewRegistry())
	h := NewHub(nil, nil, metrics)
	conn := dialHub(t, h, "")
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSClients))

	require.NoError(t, h.Publish(context.Background(), []domain.Event{
		createdEvent(0, "FAT-REP", 100),
		mintEvent(1, "tx1", 100),
	}))

	first := readEvent(t, conn)
	assert.Equal(t, domain.EventRepCreated, first.Kind)
	assert.Equal(t, "FAT-REP", first.RepCreated.Ticker)

	second := readEvent(t, conn)
	assert.Equal(t, domain.EventMint, second.Kind)
	assert.Equal(t, "500", second.Mint.TokensOut.Dec())
}

func TestHub_TokenFilter(t *testing.T) {
	h := NewHub(nil, nil, nil)
	conn := dialHub(t, h, "?token="+testAddr(101).String())
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Publish(context.Background(), []domain.Event{
		mintEvent(1, "tx1", 100),
		mintEvent(2, "tx2", 101),
	}))

	ev := readEvent(t, conn)
	assert.Equal(t, "tx2", ev.TxID)
}

func TestHub_RejectsBadTokenFilter(t *testing.T) {
	h := NewHub(nil, nil, nil)
	server := httptest.NewServer(h)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=not-base58-0OIl"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHub_DropsSlowClient(t *testing.T) {
	metrics := observability.NewMetrics("", prometheus.NewRegistry())
	cfg := DefaultHubConfig()
	cfg.SendBuffer = 1
	h := NewHub(&cfg, nil, metrics)
	dialHub(t, h, "")
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	batch := make([]domain.Event, 64)
	for i := range batch {
		batch[i] = mintEvent(uint64(i), "tx", 100)
	}
	require.NoError(t, h.Publish(context.Background(), batch))

	assert.Equal(t, 0, h.Clients())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSDropped))
}

func TestHub_Close(t *testing.T) {
	h := NewHub(nil, nil, nil)
	conn := dialHub(t, h, "")
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	h.Close()
	assert.Equal(t, 0, h.Clients())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	assert.NoError(t, h.Publish(context.Background(), []domain.Event{mintEvent(1, "tx1", 100)}))
}

func TestHub_AddAfterCloseRejected(t *testing.T) {
	h := NewHub(nil, nil, nil)
	before := &client{send: make(chan []byte, 1), closed: make(chan struct{})}
	require.True(t, h.add(before))

	h.Close()
	select {
	case <-before.closed:
	default:
		t.Fatal("Close must signal registered clients")
	}

	late := &client{send: make(chan []byte, 1), closed: make(chan struct{})}
	assert.False(t, h.add(late))
	assert.Equal(t, 0, h.Clients())

	// Nothing is delivered to a client that connected during shutdown.
	require.NoError(t, h.Publish(context.Background(), []domain.Event{mintEvent(1, "tx1", 100)}))
	assert.Empty(t, late.send)
}
