package config

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter returns an async writer for the book event topic. Delivery failures are handed
// to onError instead of blocking request handling.
func NewKafkaWriter(cfg KafkaConfig, onError func(err error)) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil && onError != nil {
				onError(err)
			}
		},
	}
}
