// Package outbox 实现发件箱模式：事件与提交记录同事务落库，由中继异步发布到 RabbitMQ。
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/constants"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/storage"
	"resume-ner-go/internal/storage/models"
)

// NewMessage 构造一条待发布的 outbox 消息
func NewMessage(aggregateID, eventType, exchange, routingKey string, payload interface{}) (*models.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化outbox负载失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      aggregateID,
		EventType:        eventType,
		Payload:          string(body),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           constants.OutboxStatusPending,
	}, nil
}

// MessageRelay 轮询 outbox 表并发布到消息代理
type MessageRelay struct {
	db              *gorm.DB
	publisher       storage.Publisher
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	publishTimeout  time.Duration
	done            chan struct{}
	tracer          trace.Tracer
}

// NewMessageRelay 创建中继
func NewMessageRelay(db *gorm.DB, publisher storage.Publisher, cfg config.OutboxConfig) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		pollingInterval: config.GetDuration(cfg.PollInterval, 2*time.Second),
		batchSize:       cfg.BatchSize,
		maxRetries:      cfg.MaxRetries,
		publishTimeout:  time.Duration(cfg.PublishTimeoutS) * time.Second,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("resume-ner-go/outbox"),
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxRetries <= 0 {
		r.maxRetries = 5
	}
	if r.publishTimeout <= 0 {
		r.publishTimeout = 5 * time.Second
	}
	return r
}

// Start 在后台轮询，ctx 取消或调用 Stop 后退出
func (r *MessageRelay) Start(ctx context.Context) {
	logger.Info().Dur("interval", r.pollingInterval).Int("batch_size", r.batchSize).Msg("outbox 中继启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("outbox 中继已停止")
				return
			case <-r.done:
				logger.Info().Msg("outbox 中继已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(ctx); err != nil {
					logger.Error().Err(err).Msg("处理outbox消息失败")
				}
			}
		}
	}()
}

// Stop 停止轮询
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages 锁定一批 PENDING 消息并逐条发布，状态更新与锁在同一事务内
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	// SKIP LOCKED 允许多个实例并行中继而不重复发送
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", constants.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return fmt.Errorf("查询待发布消息失败: %w", err)
	}
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(attribute.Int("messaging.batch.message_count", len(messages))))
	defer span.End()

	for i := range messages {
		msg := &messages[i]
		pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
		err := r.publisher.PublishMessage(pubCtx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		cancel()

		applyPublishResult(msg, err, r.maxRetries, time.Now())
		if err != nil {
			logger.Warn().Err(err).
				Uint64("id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retries", msg.RetryCount).
				Msg("发布outbox消息失败")
		}

		if err := tx.Save(msg).Error; err != nil {
			// 回滚后这批消息保持 PENDING，下一轮重新拾取
			return fmt.Errorf("更新outbox消息 %d 失败: %w", msg.ID, err)
		}
	}
	return tx.Commit().Error
}

// applyPublishResult 根据发布结果更新消息状态
func applyPublishResult(msg *models.OutboxMessage, err error, maxRetries int, now time.Time) {
	if err == nil {
		msg.Status = constants.OutboxStatusSent
		msg.ProcessedAt = &now
		msg.ErrorMessage = ""
		return
	}
	msg.RetryCount++
	msg.ErrorMessage = err.Error()
	if msg.RetryCount >= maxRetries {
		msg.Status = constants.OutboxStatusFailed
		msg.ProcessedAt = &now
	}
}
