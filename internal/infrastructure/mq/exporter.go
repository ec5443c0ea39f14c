// Package mq 将分发的事件镜像写入 Kafka，供审计与分析消费
// 实时投递不经过 Kafka，导出失败不影响在线推送
package mq

import (
	"context"
	"encoding/json"
	"time"

	"team_chat_server/internal/config"
	"team_chat_server/internal/realtime/event"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Record 写入 Kafka 的消息体
type Record struct {
	Target    TargetRecord    `json:"target"`
	Envelope  json.RawMessage `json:"envelope"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// TargetRecord 路由目标的可序列化形态
type TargetRecord struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Exclude string `json:"exclude,omitempty"`
}

// KafkaExporter 基于 kafka-go Writer 的异步导出器
type KafkaExporter struct {
	writer  *kafka.Writer
	onError func(error)
}

// NewKafkaExporter 创建导出器
// Writer 为异步模式，WriteMessages 不会阻塞分发路径；onError 在批次写入失败时回调
func NewKafkaExporter(cfg *config.KafkaConfig, onError func(error)) *KafkaExporter {
	e := &KafkaExporter{onError: onError}
	e.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.HostPort),
		Topic:                  cfg.EventTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           cfg.Timeout * time.Second,
		BatchSize:              cfg.BatchSize,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: false,
		Completion:             e.completion,
	}
	return e
}

func (e *KafkaExporter) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	zap.L().Error("kafka export failed", zap.Int("messages", len(messages)), zap.Error(err))
	if e.onError != nil {
		e.onError(err)
	}
}

// Export 镜像一条信封
func (e *KafkaExporter) Export(ctx context.Context, env event.Envelope) error {
	msg, err := BuildMessage(env, time.Now())
	if err != nil {
		return err
	}
	return e.writer.WriteMessages(ctx, msg)
}

// Close 刷新缓冲并关闭
func (e *KafkaExporter) Close() error {
	return e.writer.Close()
}

// BuildMessage 以路由目标 ID 作为分区键，保证同一频道的事件在一个分区内有序
func BuildMessage(env event.Envelope, at time.Time) (kafka.Message, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, err
	}
	rec := Record{
		Target:    targetRecord(env.Target),
		Envelope:  payload,
		EmittedAt: at.UTC(),
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(rec.Target.Kind + ":" + rec.Target.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(env.Event.String())},
		},
	}, nil
}

func targetRecord(t event.Target) TargetRecord {
	rec := TargetRecord{}
	switch t.Kind {
	case event.TargetChannel:
		rec.Kind, rec.ID = "channel", t.ID.String()
	case event.TargetTeam:
		rec.Kind, rec.ID = "team", t.ID.String()
	case event.TargetUser:
		rec.Kind, rec.ID = "user", t.ID.String()
	case event.TargetAll:
		rec.Kind = "all"
	case event.TargetSession:
		rec.Kind, rec.ID = "session", t.SessionID
	default:
		rec.Kind = "none"
	}
	if t.Exclude != uuid.Nil {
		rec.Exclude = t.Exclude.String()
	}
	return rec
}
