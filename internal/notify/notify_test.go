package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
	"shopsphere/internal/repository/repotest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	published []models.Notification
}

func (p *recordingPublisher) Publish(n *models.Notification) int {
	p.published = append(p.published, *n)
	return 1
}

func TestDispatcherStoresThenPublishes(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	pub := &recordingPublisher{}
	d := NewDispatcher(store.Notifications(), pub, discardLogger())

	order := &models.Order{ID: 7, UserID: 3, Status: models.OrderStatusPending, Total: decimal.RequireFromString("66")}
	require.NoError(t, d.OrderConfirmed(ctx, order))
	require.NoError(t, d.PaymentConfirmed(ctx, order, &models.Payment{Reference: "PAY-ABCDEF123456", Amount: order.Total}))

	order.Status = models.OrderStatusShipped
	require.NoError(t, d.OrderStatusChanged(ctx, order))
	order.Status = models.OrderStatusProcessing
	require.NoError(t, d.OrderStatusChanged(ctx, order))

	stored, err := store.Notifications().ListByUser(ctx, 3)
	require.NoError(t, err)
	require.Len(t, stored, 4)
	require.Len(t, pub.published, 4)

	first := pub.published[0]
	assert.Equal(t, "Order Confirmed", first.Title)
	assert.Equal(t, models.NotificationOrder, first.Type)
	assert.Contains(t, first.Message, "$66.00")
	require.NotNil(t, first.Link)
	assert.Equal(t, "/orders/7", *first.Link)
	assert.NotZero(t, first.ID)

	assert.Equal(t, models.NotificationPayment, pub.published[1].Type)
	assert.Contains(t, pub.published[1].Message, "PAY-ABCDEF123456")
	assert.Equal(t, "Order Shipped", pub.published[2].Title)
	assert.Equal(t, models.NotificationShipping, pub.published[2].Type)
	assert.Equal(t, "Order Processing", pub.published[3].Title)
}

func TestDispatcherReportsStoreFailure(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(repotest.New().Notifications(), pub, discardLogger())

	err := d.OrderConfirmed(context.Background(), &models.Order{ID: 1})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	assert.Empty(t, pub.published)
}

func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strconv.Atoi(r.URL.Query().Get("user"))
		hub.ServeWS(w, r, userID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + strconv.Itoa(userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub := NewHub(nil, discardLogger())
	defer hub.Close()
	srv := newHubServer(t, hub)

	owner := dial(t, srv, 1)
	other := dial(t, srv, 2)
	require.Eventually(t, func() bool {
		return hub.Connections(1) == 1 && hub.Connections(2) == 1
	}, time.Second, 10*time.Millisecond)

	sent := hub.Publish(&models.Notification{ID: 5, UserID: 1, Type: models.NotificationPromo, Title: "Sale"})
	assert.Equal(t, 1, sent)

	owner.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := owner.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type         string              `json:"type"`
		Notification models.Notification `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, 5, msg.Notification.ID)
	assert.Equal(t, "Sale", msg.Notification.Title)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHubForgetsClosedConnections(t *testing.T) {
	hub := NewHub(nil, discardLogger())
	defer hub.Close()
	srv := newHubServer(t, hub)

	conn := dial(t, srv, 1)
	require.Eventually(t, func() bool { return hub.Connections(1) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections(1) == 0 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.Publish(&models.Notification{UserID: 1, Title: "gone"}))
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"https://shop.example.com"}, discardLogger())
	defer hub.Close()
	srv := newHubServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=1"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil, discardLogger())
	srv := newHubServer(t, hub)

	conn := dial(t, srv, 1)
	require.Eventually(t, func() bool { return hub.Connections(1) == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
	assert.Zero(t, hub.Connections(1))
}
