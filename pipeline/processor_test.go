package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"atlas/dedup"
	"atlas/types"
)

type fakeMetadataSource struct {
	records []types.ContentRecord
}

func (f *fakeMetadataSource) GetAllMetadata() ([]types.ContentRecord, error) {
	return f.records, nil
}

type fakeURLChecker struct {
	known map[string]bool
	err   error
}

func (f *fakeURLChecker) Exists(url string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[url], nil
}

type recordingPublisher struct {
	decisions []DecisionMessage
	err       error
}

func (r *recordingPublisher) PublishDecision(decision DecisionMessage) error {
	if r.err != nil {
		return r.err
	}
	r.decisions = append(r.decisions, decision)
	return nil
}

func newTestProcessor(t *testing.T, metadata *fakeMetadataSource, urls *fakeURLChecker, publisher Publisher) *Processor {
	t.Helper()
	deduplicator, err := dedup.NewIntegratedDeduplicator(metadata, urls, nil, dedup.IntegratedConfig{})
	if err != nil {
		t.Fatalf("NewIntegratedDeduplicator returned error: %v", err)
	}
	return NewProcessor(deduplicator, publisher)
}

func TestHandleMessagePublishesSkipForKnownURL(t *testing.T) {
	publisher := &recordingPublisher{}
	urls := &fakeURLChecker{known: map[string]bool{"https://example.com/a": true}}
	processor := newTestProcessor(t, &fakeMetadataSource{}, urls, publisher)

	payload, err := json.Marshal(CandidateMessage{
		URL:         "https://example.com/a",
		ContentType: types.ContentTypeArticle,
	})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	shouldMark, err := processor.HandleMessage(context.Background(), payload)
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if !shouldMark {
		t.Fatal("expected handled message to be marked")
	}
	if len(publisher.decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(publisher.decisions))
	}
	decision := publisher.decisions[0]
	if decision.Recommendation != dedup.RecommendSkip {
		t.Errorf("expected %q recommendation, got %q", dedup.RecommendSkip, decision.Recommendation)
	}
	if !decision.Report.URLDuplicate {
		t.Error("expected URL duplicate flag in the report")
	}
	if decision.URL != "https://example.com/a" {
		t.Errorf("unexpected decision URL %q", decision.URL)
	}
}

func TestHandleMessagePublishesProcessForNewContent(t *testing.T) {
	publisher := &recordingPublisher{}
	processor := newTestProcessor(t, &fakeMetadataSource{}, &fakeURLChecker{}, publisher)

	payload, err := json.Marshal(CandidateMessage{
		URL:         "https://example.com/new",
		ContentType: types.ContentTypeArticle,
		Record: &types.ContentRecord{
			UID:   "abc123",
			Title: "Fresh Writeup",
			URL:   "https://example.com/new",
		},
	})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	shouldMark, err := processor.HandleMessage(context.Background(), payload)
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if !shouldMark {
		t.Fatal("expected handled message to be marked")
	}
	if len(publisher.decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(publisher.decisions))
	}
	decision := publisher.decisions[0]
	if decision.Recommendation != dedup.RecommendProcess {
		t.Errorf("expected %q recommendation, got %q", dedup.RecommendProcess, decision.Recommendation)
	}
	if decision.UID != "abc123" {
		t.Errorf("expected decision keyed by record uid, got %q", decision.UID)
	}
}

func TestHandleMessageDropsUndecodablePayload(t *testing.T) {
	publisher := &recordingPublisher{}
	processor := newTestProcessor(t, &fakeMetadataSource{}, &fakeURLChecker{}, publisher)

	shouldMark, err := processor.HandleMessage(context.Background(), []byte("not json"))
	if err != nil {
		t.Fatalf("undecodable payload should not return an error, got %v", err)
	}
	if !shouldMark {
		t.Fatal("expected undecodable payload to be marked and dropped")
	}
	if len(publisher.decisions) != 0 {
		t.Fatalf("expected no decisions, got %d", len(publisher.decisions))
	}
}

func TestHandleMessageDropsInvalidCandidate(t *testing.T) {
	publisher := &recordingPublisher{}
	processor := newTestProcessor(t, &fakeMetadataSource{}, &fakeURLChecker{}, publisher)

	payload, err := json.Marshal(CandidateMessage{URL: "https://example.com/x", ContentType: "carrier-pigeon"})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	shouldMark, err := processor.HandleMessage(context.Background(), payload)
	if err != nil {
		t.Fatalf("invalid candidate should not return an error, got %v", err)
	}
	if !shouldMark {
		t.Fatal("expected invalid candidate to be marked and dropped")
	}
	if len(publisher.decisions) != 0 {
		t.Fatalf("expected no decisions, got %d", len(publisher.decisions))
	}
}

func TestHandleMessageLeavesFailedCheckUnmarked(t *testing.T) {
	publisher := &recordingPublisher{}
	urls := &fakeURLChecker{err: errors.New("registry offline")}
	processor := newTestProcessor(t, &fakeMetadataSource{}, urls, publisher)

	payload, err := json.Marshal(CandidateMessage{
		URL:         "https://example.com/a",
		ContentType: types.ContentTypeArticle,
	})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	shouldMark, err := processor.HandleMessage(context.Background(), payload)
	if err == nil {
		t.Fatal("expected error when the duplicate check fails")
	}
	if shouldMark {
		t.Fatal("failed check should leave the message unmarked for retry")
	}
	if len(publisher.decisions) != 0 {
		t.Fatalf("expected no decisions, got %d", len(publisher.decisions))
	}
}

type fakeTagger struct {
	tags   []string
	err    error
	tagged []string
}

func (f *fakeTagger) ApplyTags(record *types.ContentRecord) error {
	if f.err != nil {
		return f.err
	}
	f.tagged = append(f.tagged, record.UID)
	record.Tags = f.tags
	return nil
}

func TestHandleMessageTagsProcessedRecords(t *testing.T) {
	publisher := &recordingPublisher{}
	tagger := &fakeTagger{tags: []string{"technology"}}
	processor := newTestProcessor(t, &fakeMetadataSource{}, &fakeURLChecker{}, publisher).WithTagger(tagger)

	payload, err := json.Marshal(CandidateMessage{
		URL:         "https://example.com/new",
		ContentType: types.ContentTypeArticle,
		Record:      &types.ContentRecord{UID: "abc123", Title: "Fresh Writeup"},
	})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	if _, err := processor.HandleMessage(context.Background(), payload); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if len(tagger.tagged) != 1 || tagger.tagged[0] != "abc123" {
		t.Fatalf("expected the record to be tagged, got %v", tagger.tagged)
	}
	if len(publisher.decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(publisher.decisions))
	}
	if len(publisher.decisions[0].Tags) != 1 || publisher.decisions[0].Tags[0] != "technology" {
		t.Errorf("expected tags on the decision, got %v", publisher.decisions[0].Tags)
	}
}

func TestHandleMessageSkipsTaggingForDuplicates(t *testing.T) {
	publisher := &recordingPublisher{}
	tagger := &fakeTagger{tags: []string{"technology"}}
	urls := &fakeURLChecker{known: map[string]bool{"https://example.com/a": true}}
	processor := newTestProcessor(t, &fakeMetadataSource{}, urls, publisher).WithTagger(tagger)

	payload, err := json.Marshal(CandidateMessage{
		URL:         "https://example.com/a",
		ContentType: types.ContentTypeArticle,
		Record:      &types.ContentRecord{UID: "dup", Title: "Old News"},
	})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	if _, err := processor.HandleMessage(context.Background(), payload); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if len(tagger.tagged) != 0 {
		t.Fatalf("duplicates must not be tagged, got %v", tagger.tagged)
	}
}

func TestHandleMessageTaggingFailureIsNonFatal(t *testing.T) {
	publisher := &recordingPublisher{}
	tagger := &fakeTagger{err: errors.New("embedding api down")}
	processor := newTestProcessor(t, &fakeMetadataSource{}, &fakeURLChecker{}, publisher).WithTagger(tagger)

	payload, err := json.Marshal(CandidateMessage{
		URL:         "https://example.com/new",
		ContentType: types.ContentTypeArticle,
		Record:      &types.ContentRecord{UID: "abc123", Title: "Fresh Writeup"},
	})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	shouldMark, err := processor.HandleMessage(context.Background(), payload)
	if err != nil {
		t.Fatalf("tagging failure should not fail the message, got %v", err)
	}
	if !shouldMark {
		t.Fatal("expected the message to be marked despite the tagging failure")
	}
	if len(publisher.decisions) != 1 {
		t.Fatalf("expected the decision to still publish, got %d", len(publisher.decisions))
	}
	if publisher.decisions[0].Tags != nil {
		t.Errorf("expected no tags after a tagging failure, got %v", publisher.decisions[0].Tags)
	}
}

func TestHandleMessageLeavesFailedPublishUnmarked(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	processor := newTestProcessor(t, &fakeMetadataSource{}, &fakeURLChecker{}, publisher)

	payload, err := json.Marshal(CandidateMessage{
		URL:         "https://example.com/a",
		ContentType: types.ContentTypeArticle,
	})
	if err != nil {
		t.Fatalf("failed to encode candidate: %v", err)
	}

	shouldMark, err := processor.HandleMessage(context.Background(), payload)
	if err == nil {
		t.Fatal("expected error when publishing fails")
	}
	if shouldMark {
		t.Fatal("failed publish should leave the message unmarked for retry")
	}
}
