package common

import (
	"context"
	"time"
)

// Message is one record delivered by the message broker.
type Message struct {
	Topic     string            `json:"topic"`
	Partition int               `json:"partition"`
	Offset    int64             `json:"offset"`
	Key       []byte            `json:"key,omitempty"`
	Value     []byte            `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ProducerMessage is one record handed to the broker for publishing.
// Partition is advisory; the producer's balancer decides when it is
// left at zero.
type ProducerMessage struct {
	Topic     string            `json:"topic"`
	Key       []byte            `json:"key,omitempty"`
	Value     []byte            `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Partition int               `json:"partition,omitempty"`
}

// MessageHandler processes one delivered message. A nil return commits
// the offset; an error triggers the consumer's retry policy.
type MessageHandler func(ctx context.Context, msg *Message) error

// TopicConfig describes one broker topic to provision.
type TopicConfig struct {
	Name              string            `json:"name"`
	NumPartitions     int               `json:"num_partitions"`
	ReplicationFactor int               `json:"replication_factor"`
	RetentionMs       int64             `json:"retention_ms,omitempty"`
	CleanupPolicy     string            `json:"cleanup_policy,omitempty"`
	MaxMessageBytes   int               `json:"max_message_bytes,omitempty"`
	Configs           map[string]string `json:"configs,omitempty"`
}

// BatchItemError ties a publish failure to its position in the batch.
type BatchItemError struct {
	Index int    `json:"index"`
	Topic string `json:"topic,omitempty"`
	Error error  `json:"-"`
}

// BatchPublishResult summarizes a batch publish.
type BatchPublishResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Errors    []BatchItemError `json:"errors,omitempty"`
}
