package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Publisher 频道发布能力（由 pkg/redis.Client 实现）
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber 频道订阅能力（由 pkg/redis.Client 实现）
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RedisNotifier 将事件发布到 Redis 频道，供所有实例的 Relay 接收
type RedisNotifier struct {
	pub     Publisher
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier 创建 RedisNotifier
func NewRedisNotifier(pub Publisher, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{pub: pub, channel: channel, logger: logger}
}

// Publish 实现 Notifier，失败只记录日志
func (n *RedisNotifier) Publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		n.logger.Warn("序列化变更事件失败", zap.Error(err))
		return
	}
	if err := n.pub.Publish(ctx, n.channel, payload); err != nil {
		n.logger.Warn("发布变更事件失败",
			zap.String("channel", n.channel),
			zap.String("key", e.Key()),
			zap.Error(err),
		)
	}
}

// Relay 将 Redis 频道中的事件转发到本地 Hub，直到 ctx 取消
func Relay(ctx context.Context, sub Subscriber, channel string, hub *Hub, logger *zap.Logger) error {
	msgs, err := sub.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	go func() {
		for payload := range msgs {
			var e Event
			if err := json.Unmarshal(payload, &e); err != nil {
				logger.Warn("无法解析变更事件", zap.Error(err))
				continue
			}
			hub.Publish(ctx, e)
		}
		logger.Info("变更事件转发已停止", zap.String("channel", channel))
	}()

	return nil
}
