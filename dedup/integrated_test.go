package dedup

import (
	"errors"
	"testing"

	"atlas/types"
)

// fakeURLChecker implements URLChecker with a fixed answer.
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

// recordingRemover implements MetadataRemover and records removals.
type recordingRemover struct {
	removed []string
	failUID string
}

func (r *recordingRemover) Remove(uid string) error {
	if uid == r.failUID {
		return errors.New("simulated removal failure")
	}
	r.removed = append(r.removed, uid)
	return nil
}

// explodingSource fails every fetch; used to prove short-circuits never
// touch the metadata store.
type explodingSource struct{}

func (explodingSource) GetAllMetadata() ([]types.ContentRecord, error) {
	return nil, errors.New("metadata must not be consulted")
}

func newIntegrated(t *testing.T, source MetadataSource, urls URLChecker, remover MetadataRemover, config IntegratedConfig) *IntegratedDeduplicator {
	t.Helper()
	d, err := NewIntegratedDeduplicator(source, urls, remover, config)
	if err != nil {
		t.Fatalf("failed to create integrated deduplicator: %v", err)
	}
	return d
}

func TestCheckAllDuplicatesURLShortCircuit(t *testing.T) {
	urls := &fakeURLChecker{known: map[string]bool{"https://x.com/a": true}}
	d := newIntegrated(t, explodingSource{}, urls, nil, IntegratedConfig{})

	report, err := d.CheckAllDuplicates("https://x.com/a", types.ContentTypeArticle, nil)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !report.IsDuplicate || report.DuplicateType != DuplicateTypeURL {
		t.Fatalf("expected url duplicate, got %+v", report)
	}
	if !report.URLDuplicate || report.ContentDuplicate {
		t.Errorf("flag mismatch: %+v", report)
	}
	if report.Confidence != 1.0 {
		t.Errorf("url-exact match must be maximally trusted, got %f", report.Confidence)
	}
	if report.Recommendation != RecommendSkip {
		t.Errorf("expected skip, got %s", report.Recommendation)
	}
}

func TestCheckAllDuplicatesContentDuplicate(t *testing.T) {
	source := &fakeMetadataSource{records: []types.ContentRecord{{
		UID:         "old",
		ContentType: types.ContentTypeArticle,
		Title:       "Weekly Infrastructure Digest",
	}}}
	d := newIntegrated(t, source, &fakeURLChecker{}, nil, IntegratedConfig{DisableFastCheck: true})

	candidate := &types.ContentRecord{
		UID:         "new",
		ContentType: types.ContentTypeArticle,
		Title:       "Weekly Infrastructure Digest",
	}
	report, err := d.CheckAllDuplicates("https://x.com/fresh", types.ContentTypeArticle, candidate)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !report.IsDuplicate || report.DuplicateType != DuplicateTypeContent {
		t.Fatalf("expected content duplicate, got %+v", report)
	}
	if report.SimilarityMatch == nil || report.SimilarityMatch.MatchType != MatchTitleExact {
		t.Fatalf("expected title_exact evidence, got %+v", report.SimilarityMatch)
	}
	if report.Recommendation != RecommendSkip {
		t.Errorf("exact matches never re-process, got %s", report.Recommendation)
	}
}

func TestCheckAllDuplicatesNoDuplicate(t *testing.T) {
	source := &fakeMetadataSource{records: []types.ContentRecord{{
		UID:         "old",
		ContentType: types.ContentTypeArticle,
		Title:       "Unrelated Topic Entirely",
	}}}
	d := newIntegrated(t, source, &fakeURLChecker{}, nil, IntegratedConfig{})

	candidate := &types.ContentRecord{
		UID:         "new",
		ContentType: types.ContentTypeArticle,
		Title:       "Fresh Original Reporting Piece",
	}
	report, err := d.CheckAllDuplicates("https://x.com/fresh", types.ContentTypeArticle, candidate)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if report.IsDuplicate {
		t.Fatalf("expected unique verdict, got %+v", report)
	}
	if report.Recommendation != RecommendProcess {
		t.Errorf("expected process, got %s", report.Recommendation)
	}
	if report.DuplicateType != "" {
		t.Errorf("expected no duplicate type, got %q", report.DuplicateType)
	}
}

func TestCheckAllDuplicatesWithoutMetadataSkipsContentCheck(t *testing.T) {
	d := newIntegrated(t, explodingSource{}, &fakeURLChecker{}, nil, IntegratedConfig{})

	report, err := d.CheckAllDuplicates("https://x.com/fresh", types.ContentTypeArticle, nil)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if report.IsDuplicate || report.Recommendation != RecommendProcess {
		t.Fatalf("nil candidate must process without content checks, got %+v", report)
	}
}

func TestIsContentDuplicateFastPathSynthesizesHashMatch(t *testing.T) {
	source := &fakeMetadataSource{records: []types.ContentRecord{{
		UID:         "old",
		ContentType: types.ContentTypeArticle,
		Title:       "Colliding Headline",
	}}}
	d := newIntegrated(t, source, nil, nil, IntegratedConfig{})

	dup, match, err := d.IsContentDuplicate(types.ContentTypeArticle, types.ContentRecord{
		UID:   "new",
		Title: "colliding headline",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !dup {
		t.Fatal("expected fast-path duplicate")
	}
	if match.MatchType != MatchHashMatch {
		t.Errorf("expected hash_match, got %s", match.MatchType)
	}
	if match.Confidence != 0.9 || match.SimilarityScore != 1.0 {
		t.Errorf("unexpected synthesized scores: %+v", match)
	}
	if match.PrimaryUID != "old" {
		t.Errorf("fast path must report the colliding uid, got %q", match.PrimaryUID)
	}
	if match.DuplicateUID != "new" {
		t.Errorf("unexpected duplicate uid %q", match.DuplicateUID)
	}
}

func TestIsContentDuplicateDisabled(t *testing.T) {
	d := newIntegrated(t, explodingSource{}, nil, nil, IntegratedConfig{DisableContentCheck: true})

	dup, match, err := d.IsContentDuplicate(types.ContentTypeArticle, types.ContentRecord{UID: "new"})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if dup || match != nil {
		t.Fatalf("disabled content check must report nothing, got %v %+v", dup, match)
	}
}

func TestRecommendationTiers(t *testing.T) {
	cases := []struct {
		matchType  string
		confidence float64
		want       string
	}{
		{MatchTitleExact, 0.5, RecommendSkip},
		{MatchHashMatch, 0.9, RecommendSkip},
		{MatchContentHigh, 0.95, RecommendSkip},
		{MatchContentHigh, 0.85, RecommendReview},
		{MatchContentMedium, 0.81, RecommendReview},
		{MatchContentMedium, 0.75, RecommendProcessWithWarning},
		{MatchHybrid, 0.8, RecommendProcessWithWarning},
	}
	for _, tc := range cases {
		if got := recommendFor(tc.matchType, tc.confidence); got != tc.want {
			t.Errorf("recommendFor(%s, %.2f) = %s, want %s", tc.matchType, tc.confidence, got, tc.want)
		}
	}
}

func TestFindSimilarContentLimit(t *testing.T) {
	var records []types.ContentRecord
	titles := []string{
		"Shared Migration Headline One",
		"Shared Migration Headline Two",
		"Shared Migration Headline Three",
	}
	for i, title := range titles {
		records = append(records, types.ContentRecord{
			UID:         types.GenerateUID(title),
			ContentType: types.ContentTypeArticle,
			Title:       title,
			// keep index in play without affecting similarity
			Summary: titles[i],
		})
	}
	d := newIntegrated(t, &fakeMetadataSource{records: records}, nil, nil, IntegratedConfig{})

	matches, err := d.FindSimilarContent(types.ContentTypeArticle, types.ContentRecord{
		UID:   "new",
		Title: "Shared Migration Headline One",
	}, 2)
	if err != nil {
		t.Fatalf("find similar failed: %v", err)
	}
	if len(matches) > 2 {
		t.Fatalf("expected at most 2 matches, got %d", len(matches))
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one similar item")
	}
}

func TestGetDuplicateStatistics(t *testing.T) {
	records := []types.ContentRecord{
		{UID: "a1", ContentType: types.ContentTypeArticle, Title: "Duplicated Story Headline"},
		{UID: "a2", ContentType: types.ContentTypeArticle, Title: "Duplicated Story Headline"},
		{UID: "p1", ContentType: types.ContentTypePodcast, Title: "Standalone Podcast Episode"},
	}
	d := newIntegrated(t, &fakeMetadataSource{records: records}, nil, nil, IntegratedConfig{})

	stats, err := d.GetDuplicateStatistics()
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.TotalItems != 3 {
		t.Errorf("expected 3 items, got %d", stats.TotalItems)
	}
	// Both directions of the article pair count.
	if stats.PotentialDuplicates != 2 {
		t.Errorf("expected 2 potential duplicates, got %d", stats.PotentialDuplicates)
	}
	if stats.HighConfidenceDuplicates != 2 {
		t.Errorf("expected 2 high-confidence duplicates, got %d", stats.HighConfidenceDuplicates)
	}

	articleStats := stats.ByType[types.ContentTypeArticle]
	if articleStats.TotalItems != 2 || articleStats.PotentialDuplicates != 2 {
		t.Errorf("unexpected article stats: %+v", articleStats)
	}
	podcastStats := stats.ByType[types.ContentTypePodcast]
	if podcastStats.TotalItems != 1 || podcastStats.PotentialDuplicates != 0 {
		t.Errorf("unexpected podcast stats: %+v", podcastStats)
	}
}

func TestCleanupDuplicatesDryRun(t *testing.T) {
	records := []types.ContentRecord{
		{UID: "keep", ContentType: types.ContentTypeArticle, Title: "Flagged Duplicate Headline"},
		{UID: "drop", ContentType: types.ContentTypeArticle, Title: "Flagged Duplicate Headline"},
	}
	remover := &recordingRemover{}
	d := newIntegrated(t, &fakeMetadataSource{records: records}, nil, remover, IntegratedConfig{})

	report, err := d.CleanupDuplicates(true, 0)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if !report.DryRun {
		t.Error("report must record the dry run")
	}
	if report.Found != 1 {
		t.Errorf("expected 1 flagged duplicate, got %d", report.Found)
	}
	if report.Removed != 0 || len(remover.removed) != 0 {
		t.Errorf("dry run must not remove anything: %+v", remover.removed)
	}
}

func TestCleanupDuplicatesRemoves(t *testing.T) {
	records := []types.ContentRecord{
		{UID: "keep", ContentType: types.ContentTypeArticle, Title: "Flagged Duplicate Headline"},
		{UID: "drop", ContentType: types.ContentTypeArticle, Title: "Flagged Duplicate Headline"},
	}
	remover := &recordingRemover{}
	d := newIntegrated(t, &fakeMetadataSource{records: records}, nil, remover, IntegratedConfig{})

	report, err := d.CleanupDuplicates(false, 0)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if report.Found != 1 || report.Removed != 1 {
		t.Fatalf("expected one found and removed, got %+v", report)
	}
	if len(remover.removed) != 1 || remover.removed[0] != "drop" {
		t.Fatalf("expected the later copy removed, got %v", remover.removed)
	}

	articleReport := report.ByType[types.ContentTypeArticle]
	if articleReport.Found != 1 || articleReport.Removed != 1 {
		t.Errorf("unexpected per-type report: %+v", articleReport)
	}
}

func TestCleanupDuplicatesRemovalFailureIsolated(t *testing.T) {
	records := []types.ContentRecord{
		{UID: "keep", ContentType: types.ContentTypeArticle, Title: "Failing Duplicate Headline"},
		{UID: "bad", ContentType: types.ContentTypeArticle, Title: "Failing Duplicate Headline"},
		{UID: "pk", ContentType: types.ContentTypePodcast, Title: "Podcast Duplicate Episode"},
		{UID: "pd", ContentType: types.ContentTypePodcast, Title: "Podcast Duplicate Episode"},
	}
	remover := &recordingRemover{failUID: "bad"}
	d := newIntegrated(t, &fakeMetadataSource{records: records}, nil, remover, IntegratedConfig{})

	report, err := d.CleanupDuplicates(false, 0)
	if err != nil {
		t.Fatalf("one bad item must not abort the sweep: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %v", report.Errors)
	}
	if report.Found != 2 {
		t.Errorf("expected 2 flagged duplicates, got %d", report.Found)
	}
	if report.Removed != 1 {
		t.Errorf("expected the podcast duplicate still removed, got %d", report.Removed)
	}
	if len(remover.removed) != 1 || remover.removed[0] != "pd" {
		t.Errorf("unexpected removals: %v", remover.removed)
	}
}

func TestCleanupWithoutRemoverRejectsWetRun(t *testing.T) {
	d := newIntegrated(t, &fakeMetadataSource{}, nil, nil, IntegratedConfig{})
	if _, err := d.CleanupDuplicates(false, 0); err == nil {
		t.Fatal("expected error when removing without a remover")
	}
}

func TestCheckAllDuplicatesURLCheckerFailurePropagates(t *testing.T) {
	d := newIntegrated(t, &fakeMetadataSource{}, &fakeURLChecker{err: errors.New("disk gone")}, nil, IntegratedConfig{})
	if _, err := d.CheckAllDuplicates("https://x.com/a", types.ContentTypeArticle, nil); err == nil {
		t.Fatal("url checker failure must propagate")
	}
}
