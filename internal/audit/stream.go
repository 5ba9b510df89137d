package audit

import (
	"context"
	"encoding/json"
	"time"

	"taskgate/internal/config"
	"taskgate/internal/types"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// streamWriter mirrors audit records onto a kafka topic. Delivery is
// best effort: a broker outage must not slow down or fail a dispatch.
type streamWriter struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func newStreamWriter(cfg *config.StreamConfig, logger *zap.Logger) *streamWriter {
	return &streamWriter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
		logger: logger,
	}
}

// Publish sends one record to the topic.
func (w *streamWriter) Publish(ctx context.Context, rec types.AuditRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		w.logger.Error("Failed to encode audit record for stream", zap.Error(err))
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(rec.TaskKind),
		Value: payload,
	}
	if err := w.writer.WriteMessages(writeCtx, msg); err != nil {
		w.logger.Error("Failed to publish audit record",
			zap.String("task_kind", string(rec.TaskKind)),
			zap.Error(err))
	}
}

// Close flushes and closes the writer.
func (w *streamWriter) Close() error {
	return w.writer.Close()
}
