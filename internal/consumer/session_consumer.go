package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"sleep-analyzer/internal/models"
	"sleep-analyzer/internal/mqtt"
	"sleep-analyzer/internal/service"

	"go.uber.org/zap"
)

// analysisDispatcher 分析派发接口（用于测试替换）
type analysisDispatcher interface {
	ProcessSession(ctx context.Context, sessionID string, kind models.TriggerKind) service.Result
}

// sessionClosedEvent 会话结束事件载荷
type sessionClosedEvent struct {
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId,omitempty"`
}

// SessionConsumer 订阅会话结束事件并触发自动分析
// 分析在独立 goroutine 中执行，订阅回调不被外部调用拖住；
// 处理失败不致命：轮询兜底会再次发现该会话
type SessionConsumer struct {
	client     *mqtt.Client
	dispatcher analysisDispatcher
	topic      string
	logger     *zap.Logger
}

// NewSessionConsumer 创建会话事件消费者
func NewSessionConsumer(client *mqtt.Client, dispatcher analysisDispatcher, topic string, logger *zap.Logger) *SessionConsumer {
	return &SessionConsumer{
		client:     client,
		dispatcher: dispatcher,
		topic:      topic,
		logger:     logger,
	}
}

// Start 订阅会话结束主题
func (c *SessionConsumer) Start(ctx context.Context) error {
	if err := c.client.Subscribe(c.topic, 1, func(topic string, payload []byte) error {
		return c.handleMessage(ctx, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to session topic: %w", err)
	}

	c.logger.Info("Session consumer started",
		zap.String("topic", c.topic),
	)
	return nil
}

// Stop 取消订阅
func (c *SessionConsumer) Stop() {
	if err := c.client.Unsubscribe(c.topic); err != nil {
		c.logger.Warn("Failed to unsubscribe session topic",
			zap.String("topic", c.topic),
			zap.Error(err),
		)
	}
	c.logger.Info("Session consumer stopped")
}

func (c *SessionConsumer) handleMessage(ctx context.Context, payload []byte) error {
	var event sessionClosedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("invalid session event payload: %w", err)
	}
	if event.SessionID == "" {
		return fmt.Errorf("session event missing sessionId")
	}

	c.logger.Info("Received session closed event",
		zap.String("session_id", event.SessionID),
		zap.String("device_id", event.DeviceID),
	)

	go func() {
		result := c.dispatcher.ProcessSession(ctx, event.SessionID, models.TriggerAutomatic)
		if !result.Success {
			c.logger.Error("Automatic analysis failed",
				zap.String("session_id", event.SessionID),
				zap.String("error", result.Error),
			)
		}
	}()

	return nil
}
