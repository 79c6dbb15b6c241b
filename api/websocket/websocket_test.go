package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/internal/events"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMessageFromEvent(t *testing.T) {
	tests := []struct {
		eventType models.EventType
		want      MessageType
		skipped   bool
	}{
		{eventType: models.EventTypeCycleStarted, skipped: true},
		{eventType: models.EventTypeForecastMade, want: MessageTypeForecast},
		{eventType: models.EventTypeDecisionMade, want: MessageTypeDecision},
		{eventType: models.EventTypeScalingComplete, want: MessageTypeScalingEvent},
		{eventType: models.EventTypeScalingFailed, want: MessageTypeAlert},
		{eventType: models.EventTypeCycleFailed, want: MessageTypeCycle},
		{eventType: models.EventTypeCycleSkipped, want: MessageTypeCycle},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			event := models.NewEvent(tt.eventType, "aks", "msg").WithCycleID("cycle-1")
			msg := MessageFromEvent(event)
			if tt.skipped {
				assert.Nil(t, msg)
				return
			}
			require.NotNil(t, msg)
			assert.Equal(t, tt.want, msg.Type)
			assert.Equal(t, string(tt.eventType), msg.Event)
			assert.Equal(t, "cycle-1", msg.CycleID)
		})
	}
}

func TestAlertFromEvent(t *testing.T) {
	record := models.NewCycleRecord("aks")
	record.ErrorKind = "ClusterStateError"
	record.ErrorMessage = "node pool busy"
	record.NodesBefore = 3

	alert := alertFromEvent(models.NewEvent(models.EventTypeCycleFailed, "aks", "failed").WithData(record))
	require.NotNil(t, alert)
	assert.Equal(t, MessageTypeAlert, alert.Type)
	assert.Equal(t, AlertData{ErrorKind: "ClusterStateError", ErrorMessage: "node pool busy", NodesBefore: 3}, alert.Data)

	assert.Nil(t, alertFromEvent(models.NewEvent(models.EventTypeCycleFinished, "aks", "ok").WithData(record)))
	assert.Nil(t, alertFromEvent(models.NewEvent(models.EventTypeCycleFailed, "aks", "no record")))
}

func TestNewWebSocketSettings(t *testing.T) {
	s := NewWebSocketSettings(nil)
	assert.Equal(t, 100, s.MaxConnections)

	s = NewWebSocketSettings(&config.WebSocketConfig{PongTimeout: 10 * time.Second, PingInterval: 30 * time.Second})
	assert.Less(t, s.PingInterval, s.PongTimeout)
}

func startHub(t *testing.T, cfg *config.WebSocketConfig) (*Hub, string) {
	t.Helper()

	hub := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", ServeWebSocket(hub, nil))
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readMessage(t *testing.T, conn *websocket.Conn) OutgoingMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg OutgoingMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestBridge_ForwardsClusterEvents(t *testing.T) {
	hub, url := startHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?cluster_id=aks-test", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus := events.NewEventBus(10)
	bridge := NewEventBridge(hub, bus.SubscribeAll())
	bridge.Start()
	defer bridge.Stop()

	record := models.NewCycleRecord("aks-test")
	record.ErrorKind = "AuthenticationError"
	record.ErrorMessage = "token expired"

	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "aks-other", "not for this client"))
	bus.Publish(models.NewEvent(models.EventTypeCycleFailed, "aks-test", "failed").WithData(record))

	first := readMessage(t, conn)
	assert.Equal(t, MessageTypeCycle, first.Type)
	assert.Equal(t, "aks-test", first.ClusterID)

	alert := readMessage(t, conn)
	assert.Equal(t, MessageTypeAlert, alert.Type)
	assert.Equal(t, "cycle_failed", alert.Event)

	assert.Eventually(t, func() bool { return bridge.Forwarded() == 3 }, time.Second, 10*time.Millisecond)
}

func TestClient_Subscribe(t *testing.T) {
	hub, url := startHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "subscribe", ClusterID: "aks-prod"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscription, msg.Type)
	assert.Equal(t, "aks-prod", msg.ClusterID)

	hub.BroadcastToCluster("aks-dev", NewMessage(MessageTypeDecision, "aks-dev", nil).JSON())
	hub.BroadcastToCluster("aks-prod", NewMessage(MessageTypeDecision, "aks-prod", nil).JSON())
	assert.Equal(t, "aks-prod", readMessage(t, conn).ClusterID)
}

func TestServeWebSocket_RejectsWhenFull(t *testing.T) {
	hub, url := startHub(t, &config.WebSocketConfig{MaxConnections: 1})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
