package notify

import (
	"context"
	"time"
)

// 通知主题（集合级别）
const (
	TopicCodeRequests    = "code_requests"
	TopicCatalogItems    = "catalog_items"
	TopicInventoryCounts = "inventory_counts"
)

// Event "某条记录发生了变化" 的提示
// 只携带定位信息，订阅方收到后应回源读取最新状态
type Event struct {
	Topic     string    `json:"topic"`
	SubjectID string    `json:"subject_id"`
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`
}

// Key 单条记录的订阅键，形如 "code_requests:<id>"
func (e Event) Key() string {
	return e.Topic + ":" + e.SubjectID
}

// Notifier 变更通知发布接口
// 投递为尽力而为、至多一次；发布失败不影响业务操作结果
type Notifier interface {
	Publish(ctx context.Context, e Event)
}

// Nop 丢弃所有事件
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
