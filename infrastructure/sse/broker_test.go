package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

func startBroker(t *testing.T, opts ...BrokerOption) Broker {
	t.Helper()

	b := NewBroker(infralogger.NewNop(), opts...)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start broker: %v", err)
	}
	t.Cleanup(func() { _ = b.Stop() })
	return b
}

func TestBroker_PublishSubscribe(t *testing.T) {
	b := startBroker(t)
	ctx := context.Background()

	events, cleanup := b.Subscribe(ctx)
	defer cleanup()

	if err := b.Publish(ctx, Event{Type: "chat", Data: map[string]any{"text": "hi"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-events:
		if got.Type != "chat" {
			t.Errorf("expected chat, got %s", got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBroker_TopicFilter(t *testing.T) {
	b := startBroker(t)
	ctx := context.Background()

	mine, cleanupMine := b.Subscribe(ctx, WithTopicFilter("conv-a"))
	defer cleanupMine()
	other, cleanupOther := b.Subscribe(ctx, WithTopicFilter("conv-b"))
	defer cleanupOther()

	if err := b.Publish(ctx, Event{Type: "typing", Topic: "conv-a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-mine:
		if got.Topic != "conv-a" {
			t.Errorf("expected topic conv-a, got %s", got.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber for conv-a got nothing")
	}

	select {
	case got := <-other:
		t.Errorf("subscriber for conv-b should not receive %s", got.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_MaxClientsRejects(t *testing.T) {
	b := startBroker(t, WithMaxClients(1))
	ctx := context.Background()

	_, cleanup := b.Subscribe(ctx)
	defer cleanup()

	rejected, cleanupRejected := b.Subscribe(ctx)
	defer cleanupRejected()

	if _, ok := <-rejected; ok {
		t.Fatal("expected closed channel for rejected subscriber")
	}
	if b.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", b.ClientCount())
	}
}

func TestBroker_SlowClientDropped(t *testing.T) {
	b := startBroker(t, WithClientBufferSize(2))
	ctx := context.Background()

	_, cleanup := b.Subscribe(ctx)
	defer cleanup()

	for range 10 {
		_ = b.Publish(ctx, Event{Type: "analysis_update"})
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("slow client not removed, %d clients remain", b.ClientCount())
}

func TestBroker_ContextCancelRemovesClient(t *testing.T) {
	b := startBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	events, cleanup := b.Subscribe(ctx)
	defer cleanup()

	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected channel to close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWriteEventDirect_Format(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteEventDirect(w, Event{Type: "chat", ID: "7", Data: map[string]string{"text": "ok"}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	want := "event: chat\nid: 7\ndata: {\"text\":\"ok\"}\n\n"
	if w.Body.String() != want {
		t.Errorf("unexpected frame:\n%q\nwant\n%q", w.Body.String(), want)
	}
}

func TestHandler_SendsConnectionEventFirst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := startBroker(t)

	router := gin.New()
	router.GET("/events", Handler(b, infralogger.NewNop()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events", http.NoBody).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.HasPrefix(body, "event: connection\n") {
		t.Fatalf("expected connection event first, got %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
}

func TestBroker_UnscopedClientSeesEveryTopic(t *testing.T) {
	b := startBroker(t)
	ctx := context.Background()

	all, cleanupAll := b.Subscribe(ctx)
	defer cleanupAll()
	scoped, cleanupScoped := b.Subscribe(ctx, WithTopicFilter("conv-a"))
	defer cleanupScoped()

	if err := b.Publish(ctx, Event{Type: "analysis_update"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := b.Publish(ctx, Event{Type: "typing", Topic: "conv-a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, want := range []string{"analysis_update", "typing"} {
		select {
		case got := <-all:
			if got.Type != want {
				t.Errorf("expected %s, got %s", want, got.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("unscoped subscriber missed %s", want)
		}
	}

	select {
	case got := <-scoped:
		if got.Type != "typing" {
			t.Errorf("scoped subscriber received untopiced %s", got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("scoped subscriber got nothing")
	}
}

func TestBroker_StopTwice(t *testing.T) {
	b := NewBroker(infralogger.NewNop(), WithConfig(Config{ShutdownTimeout: time.Second}))
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	events, cleanup := b.Subscribe(context.Background())
	defer cleanup()

	if err := b.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if _, ok := <-events; ok {
		t.Fatal("expected channel closed after stop")
	}
	if b.ClientCount() != 0 {
		t.Errorf("expected no clients after stop, got %d", b.ClientCount())
	}
}

func TestBroker_WithConfigCapsClients(t *testing.T) {
	b := startBroker(t, WithConfig(Config{MaxClients: 1, ClientBufferSize: 4}))
	ctx := context.Background()

	_, cleanup := b.Subscribe(ctx)
	defer cleanup()

	rejected, cleanupRejected := b.Subscribe(ctx)
	defer cleanupRejected()

	if _, ok := <-rejected; ok {
		t.Fatal("expected closed channel once max_clients is reached")
	}
}

func TestBroker_PublishReportsFullBuffer(t *testing.T) {
	// Not started, so nothing drains the buffer.
	b := NewBroker(infralogger.NewNop(), WithEventBufferSize(1))
	ctx := context.Background()

	if err := b.Publish(ctx, Event{Type: "typing"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := b.Publish(ctx, Event{Type: "typing"}); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
}
