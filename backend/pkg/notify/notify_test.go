package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func recv(t *testing.T, s *Subscription) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-s.Events():
		return e, ok
	case <-time.After(time.Second):
		return Event{}, false
	}
}

func assertEmpty(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case e := <-s.Events():
		t.Fatalf("不应收到事件，实际收到 %s", e.Key())
	default:
	}
}

func TestHub_TopicSubscription(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe(TopicCodeRequests)
	defer sub.Close()

	hub.Publish(context.Background(), Event{Topic: TopicCodeRequests, SubjectID: "r1", Kind: "claim"})
	hub.Publish(context.Background(), Event{Topic: TopicInventoryCounts, SubjectID: "c1", Kind: "count-recorded"})

	e, ok := recv(t, sub)
	if !ok {
		t.Fatal("应收到 code_requests 事件")
	}
	if e.SubjectID != "r1" || e.Kind != "claim" {
		t.Errorf("事件内容不符: %+v", e)
	}
	assertEmpty(t, sub)
}

func TestHub_SubjectSubscription(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe(TopicCodeRequests + ":r2")
	defer sub.Close()

	hub.Publish(context.Background(), Event{Topic: TopicCodeRequests, SubjectID: "r1"})
	hub.Publish(context.Background(), Event{Topic: TopicCodeRequests, SubjectID: "r2"})

	e, ok := recv(t, sub)
	if !ok || e.SubjectID != "r2" {
		t.Fatalf("期望只收到 r2，实际=%+v", e)
	}
	assertEmpty(t, sub)
}

func TestHub_NoKeysReceivesAll(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe()
	defer sub.Close()

	hub.Publish(context.Background(), Event{Topic: TopicCatalogItems, SubjectID: "i1"})
	if _, ok := recv(t, sub); !ok {
		t.Fatal("无过滤订阅应收到全部事件")
	}
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	sub := hub.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(context.Background(), Event{Topic: TopicCodeRequests, SubjectID: "r1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("缓冲区满时 Publish 不应阻塞")
	}

	if _, ok := recv(t, sub); !ok {
		t.Fatal("应收到第一个事件")
	}
	assertEmpty(t, sub)
}

func TestSubscription_Close(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	sub := hub.Subscribe()
	if hub.Len() != 1 {
		t.Fatalf("期望 1 个订阅，实际=%d", hub.Len())
	}

	sub.Close()
	sub.Close()

	if hub.Len() != 0 {
		t.Errorf("关闭后期望 0 个订阅，实际=%d", hub.Len())
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("关闭后事件通道应已关闭")
	}
	// 关闭后发布不应 panic
	hub.Publish(context.Background(), Event{Topic: TopicCodeRequests})
}

// ── Redis 适配 ──

type fakeBus struct {
	published [][]byte
	err       error
	ch        chan []byte
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func TestRedisNotifier_Publish(t *testing.T) {
	bus := &fakeBus{}
	n := NewRedisNotifier(bus, "changes", zap.NewNop())

	n.Publish(context.Background(), Event{Topic: TopicCodeRequests, SubjectID: "r1", Kind: "approval"})

	if len(bus.published) != 1 {
		t.Fatalf("期望发布 1 条，实际=%d", len(bus.published))
	}
	var e Event
	if err := json.Unmarshal(bus.published[0], &e); err != nil {
		t.Fatalf("payload 应为合法 JSON: %v", err)
	}
	if e.Kind != "approval" || e.SubjectID != "r1" {
		t.Errorf("payload 内容不符: %+v", e)
	}
}

func TestRedisNotifier_PublishErrorIsSwallowed(t *testing.T) {
	n := NewRedisNotifier(&fakeBus{err: errors.New("down")}, "changes", zap.NewNop())
	// 只记录日志，不 panic
	n.Publish(context.Background(), Event{Topic: TopicCodeRequests})
}

func TestRelay_ForwardsToHub(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte, 2)}
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe(TopicInventoryCounts)
	defer sub.Close()

	if err := Relay(context.Background(), bus, "changes", hub, zap.NewNop()); err != nil {
		t.Fatalf("Relay 应成功: %v", err)
	}

	bus.ch <- []byte("not-json")
	payload, _ := json.Marshal(Event{Topic: TopicInventoryCounts, SubjectID: "c1", Kind: "quantity-adjusted"})
	bus.ch <- payload
	close(bus.ch)

	e, ok := recv(t, sub)
	if !ok {
		t.Fatal("应收到转发的事件")
	}
	if e.SubjectID != "c1" {
		t.Errorf("期望 c1，实际=%s", e.SubjectID)
	}
}

func TestRelay_SubscribeError(t *testing.T) {
	bus := &fakeBus{err: errors.New("down")}
	if err := Relay(context.Background(), bus, "changes", NewHub(1, zap.NewNop()), zap.NewNop()); err == nil {
		t.Error("订阅失败应返回错误")
	}
}
