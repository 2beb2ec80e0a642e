package tagging

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"atlas/types"
)

// DefaultLabels is the topic vocabulary used when none is configured.
var DefaultLabels = []string{
	"technology", "science", "business", "politics", "health",
	"culture", "sports", "education", "finance", "engineering",
}

const (
	// DefaultMinLabelScore is the cosine similarity floor for assigning a label
	DefaultMinLabelScore = 0.25
	// DefaultMaxLabels caps how many labels one record receives
	DefaultMaxLabels = 3
)

// Tagger assigns topic labels to content records by comparing record
// embeddings against a fixed label vocabulary.
type Tagger struct {
	provider      EmbeddingsProvider
	labels        []string
	labelVectors  [][]float32
	minLabelScore float64
	maxLabels     int
}

// TaggerConfig holds tagger tuning knobs; zero values pick defaults.
type TaggerConfig struct {
	Labels        []string
	MinLabelScore float64
	MaxLabels     int
}

// NewTagger creates a tagger and embeds the label vocabulary once up front.
func NewTagger(provider EmbeddingsProvider, config TaggerConfig) (*Tagger, error) {
	if provider == nil {
		return nil, errors.New("tagger requires an embeddings provider")
	}
	labels := config.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	minScore := config.MinLabelScore
	if minScore == 0 {
		minScore = DefaultMinLabelScore
	}
	maxLabels := config.MaxLabels
	if maxLabels <= 0 {
		maxLabels = DefaultMaxLabels
	}

	vectors, err := provider.EmbedTexts(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to embed label vocabulary: %w", err)
	}
	if len(vectors) != len(labels) {
		return nil, errors.New("label embedding count mismatch")
	}

	return &Tagger{
		provider:      provider,
		labels:        labels,
		labelVectors:  vectors,
		minLabelScore: minScore,
		maxLabels:     maxLabels,
	}, nil
}

// LabelScore is one scored vocabulary label.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TagRecord returns the best-matching labels for one record, strongest
// first. Records with no usable text get no labels.
func (t *Tagger) TagRecord(record *types.ContentRecord) ([]LabelScore, error) {
	if record == nil {
		return nil, errors.New("cannot tag a nil record")
	}
	text := strings.TrimSpace(record.Title + " " + record.Text())
	if text == "" {
		return nil, nil
	}

	vectors, err := t.provider.EmbedTexts([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed record %s: %w", record.UID, err)
	}
	if len(vectors) != 1 {
		return nil, errors.New("record embedding count mismatch")
	}

	scored := make([]LabelScore, 0, len(t.labels))
	for i, label := range t.labels {
		score := cosineSimilarity(vectors[0], t.labelVectors[i])
		if score >= t.minLabelScore {
			scored = append(scored, LabelScore{Label: label, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > t.maxLabels {
		scored = scored[:t.maxLabels]
	}
	return scored, nil
}

// ApplyTags tags the record and writes the label names onto it.
func (t *Tagger) ApplyTags(record *types.ContentRecord) error {
	scored, err := t.TagRecord(record)
	if err != nil {
		return err
	}
	tags := make([]string, len(scored))
	for i, s := range scored {
		tags[i] = s.Label
	}
	record.Tags = tags
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
