package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"

	"atlas/dedup"
	"atlas/types"
)

// CandidateMessage is one ingested item awaiting a duplicate decision.
type CandidateMessage struct {
	URL         string               `json:"url"`
	ContentType types.ContentType    `json:"content_type"`
	Record      *types.ContentRecord `json:"record,omitempty"`
}

// DecisionMessage is the published outcome for one candidate.
type DecisionMessage struct {
	UID            string                `json:"uid,omitempty"`
	URL            string                `json:"url"`
	ContentType    types.ContentType     `json:"content_type"`
	Recommendation string                `json:"recommendation"`
	Report         dedup.DuplicateReport `json:"report"`
	Tags           []string              `json:"tags,omitempty"`
	DecidedAt      time.Time             `json:"decided_at"`
}

// Publisher sends a decision downstream. Satisfied by KafkaPublisher; the
// tests substitute a recorder.
type Publisher interface {
	PublishDecision(decision DecisionMessage) error
}

// KafkaPublisher publishes decisions to Kafka. Review-tier decisions go
// to the review topic so a human queue can pick them up; everything else
// goes to the decision topic.
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	topic       string
	reviewTopic string
}

// NewKafkaPublisher creates a synchronous decision publisher. An empty
// reviewTopic sends review decisions to the decision topic as well.
func NewKafkaPublisher(brokers []string, topic, reviewTopic string) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &KafkaPublisher{producer: producer, topic: topic, reviewTopic: reviewTopic}, nil
}

// PublishDecision sends one decision message keyed by record uid.
func (p *KafkaPublisher) PublishDecision(decision DecisionMessage) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	topic := p.topic
	if decision.Recommendation == dedup.RecommendReview && p.reviewTopic != "" {
		topic = p.reviewTopic
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if decision.UID != "" {
		msg.Key = sarama.StringEncoder(decision.UID)
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish decision: %w", err)
	}
	return nil
}

// Close shuts down the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Tagger annotates a record with topic labels. Optional; nil disables
// tagging.
type Tagger interface {
	ApplyTags(record *types.ContentRecord) error
}

// Processor handles candidate messages: it runs the unified duplicate
// check and publishes one decision per candidate.
type Processor struct {
	deduplicator *dedup.IntegratedDeduplicator
	publisher    Publisher
	tagger       Tagger
}

// NewProcessor creates a candidate processor.
func NewProcessor(deduplicator *dedup.IntegratedDeduplicator, publisher Publisher) *Processor {
	return &Processor{deduplicator: deduplicator, publisher: publisher}
}

// WithTagger enables topic tagging for records that pass deduplication.
func (p *Processor) WithTagger(tagger Tagger) *Processor {
	p.tagger = tagger
	return p
}

// HandleMessage implements MessageHandler. Undecodable or invalid
// candidates are marked and dropped; deduplicator and publish failures
// leave the message unmarked for retry.
func (p *Processor) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	candidate, err := decodeMessage[CandidateMessage](message)
	if err != nil {
		log.Printf("Warning: dropping undecodable candidate message: %v", err)
		return true, nil
	}
	if candidate.URL == "" || !candidate.ContentType.Valid() {
		log.Printf("Warning: dropping invalid candidate (url=%q, content_type=%q)", candidate.URL, candidate.ContentType)
		return true, nil
	}

	report, err := p.deduplicator.CheckAllDuplicates(candidate.URL, candidate.ContentType, candidate.Record)
	if err != nil {
		return false, fmt.Errorf("duplicate check failed for %s: %w", candidate.URL, err)
	}

	decision := DecisionMessage{
		URL:            candidate.URL,
		ContentType:    candidate.ContentType,
		Recommendation: report.Recommendation,
		Report:         report,
		DecidedAt:      time.Now(),
	}
	if candidate.Record != nil {
		decision.UID = candidate.Record.UID
	}

	switch report.Recommendation {
	case dedup.RecommendSkip:
		log.Printf("Skipping duplicate %s (%s, confidence %.2f)", candidate.URL, report.DuplicateType, report.Confidence)
	case dedup.RecommendReview:
		log.Printf("Queueing %s for review (confidence %.2f)", candidate.URL, report.Confidence)
	case dedup.RecommendProcessWithWarning:
		log.Printf("Warning: processing %s despite a possible duplicate (confidence %.2f)", candidate.URL, report.Confidence)
	}

	if p.tagger != nil && candidate.Record != nil &&
		(report.Recommendation == dedup.RecommendProcess || report.Recommendation == dedup.RecommendProcessWithWarning) {
		if err := p.tagger.ApplyTags(candidate.Record); err != nil {
			log.Printf("Warning: failed to tag %s: %v", candidate.URL, err)
		} else {
			decision.Tags = candidate.Record.Tags
		}
	}

	if err := p.publisher.PublishDecision(decision); err != nil {
		return false, err
	}
	return true, nil
}
