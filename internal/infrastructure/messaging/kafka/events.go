package kafka

import (
	"context"
	"time"

	"github.com/turtacn/CiteDisrupt/internal/application/pipeline"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
	"github.com/turtacn/CiteDisrupt/pkg/types/common"
)

const (
	// EventTypeCompanyCompute is carried by compute job envelopes.
	EventTypeCompanyCompute = "company.compute"

	// EventTypeCompanyCompleted is carried by completion envelopes.
	EventTypeCompanyCompleted = "company.completed"

	// EventTypeCompanyFailed is carried by failure envelopes.
	EventTypeCompanyFailed = "company.failed"
)

// defaultSource names this service in envelope headers.
const defaultSource = "citedisrupt"

// Publisher is the narrow producer surface the event adapters need.
type Publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

var _ Publisher = (*Producer)(nil)

// EventPublisherConfig selects the topics lifecycle events go to.
type EventPublisherConfig struct {
	CompletedTopic string
	FailedTopic    string
	Source         string
}

// CompanyEventPublisher frames pipeline lifecycle events into
// envelopes and publishes them. Messages are keyed by company name so
// one company's events stay in order on a single partition.
type CompanyEventPublisher struct {
	pub    Publisher
	cfg    EventPublisherConfig
	logger logging.Logger
}

var _ pipeline.EventPublisher = (*CompanyEventPublisher)(nil)

// NewCompanyEventPublisher creates the event adapter on top of a
// producer.
func NewCompanyEventPublisher(pub Publisher, cfg EventPublisherConfig, log logging.Logger) *CompanyEventPublisher {
	if cfg.CompletedTopic == "" {
		cfg.CompletedTopic = TopicCompanyCompleted
	}
	if cfg.FailedTopic == "" {
		cfg.FailedTopic = TopicCompanyFailed
	}
	if cfg.Source == "" {
		cfg.Source = defaultSource
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CompanyEventPublisher{pub: pub, cfg: cfg, logger: log}
}

// PublishCompanyCompleted announces one finished company.
func (p *CompanyEventPublisher) PublishCompanyCompleted(ctx context.Context, evt pipeline.CompanyCompletedEvent) error {
	return p.publish(ctx, p.cfg.CompletedTopic, EventTypeCompanyCompleted, evt.CompanyName, evt.RunID, evt)
}

// PublishCompanyFailed announces a company omitted from the panel.
func (p *CompanyEventPublisher) PublishCompanyFailed(ctx context.Context, evt pipeline.CompanyFailedEvent) error {
	return p.publish(ctx, p.cfg.FailedTopic, EventTypeCompanyFailed, evt.CompanyName, evt.RunID, evt)
}

func (p *CompanyEventPublisher) publish(ctx context.Context, topic, eventType, company, runID string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, p.cfg.Source, payload)
	if err != nil {
		return err
	}
	env.TraceID = runID

	msg, err := env.ToMessage(topic)
	if err != nil {
		return err
	}
	msg.Key = []byte(company)

	if err := p.pub.Publish(ctx, msg); err != nil {
		return err
	}
	p.logger.Debug("event published",
		logging.String("event_type", eventType),
		logging.String(logging.FieldCompany, company))
	return nil
}

// ComputeQueue enqueues per-company compute jobs for queue workers.
type ComputeQueue struct {
	pub    Publisher
	topic  string
	source string
	logger logging.Logger
}

// NewComputeQueue creates a queue writer on top of a producer.
func NewComputeQueue(pub Publisher, log logging.Logger) *ComputeQueue {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ComputeQueue{
		pub:    pub,
		topic:  TopicCompanyCompute,
		source: defaultSource,
		logger: log,
	}
}

// Enqueue publishes one compute job, keyed by company name.
func (q *ComputeQueue) Enqueue(ctx context.Context, job CompanyComputeJob) error {
	if job.CompanyName == "" {
		return errors.New(errors.ErrCodeValidation, "company name required")
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}

	env, err := NewEventEnvelope(EventTypeCompanyCompute, q.source, job)
	if err != nil {
		return err
	}
	env.TraceID = job.RunID

	msg, err := env.ToMessage(q.topic)
	if err != nil {
		return err
	}
	msg.Key = []byte(job.CompanyName)

	if err := q.pub.Publish(ctx, msg); err != nil {
		return err
	}
	q.logger.Info("compute job enqueued",
		logging.String(logging.FieldCompany, job.CompanyName),
		logging.String(logging.FieldRunID, job.RunID))
	return nil
}
