package kafkabroker

import (
	"context"
	"time"

	"github.com/Egor213/JewelCRM/internal/broker"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const defaultBatchTimeout = 100 * time.Millisecond

type ProducerConfig struct {
	Brokers []string
	Topic   string
}

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(cfg ProducerConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: defaultBatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{
		writer: w,
		topic:  cfg.Topic,
	}
}

// SendMessages writes the messages in one batch. Messages with the same key
// land on the same partition.
func (p *Producer) SendMessages(ctx context.Context, msgs ...broker.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  now,
		})
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		log.WithFields(log.Fields{
			"topic": p.topic,
			"count": len(out),
		}).Errorf("Failed to send messages: %v", err)
		return errorsUtils.WrapPathErr(err)
	}
	log.Debugf("Sent %d messages to %s", len(out), p.topic)
	return nil
}

func (p *Producer) Close() error {
	log.Info("Closing Kafka producer...")
	return p.writer.Close()
}
