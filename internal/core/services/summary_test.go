package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// stubSynchronizer serves a fixed reconciled status.
type stubSynchronizer struct {
	status domain.ProcessingStatus
}

func (s *stubSynchronizer) Subscribe(_ context.Context, _ string, _ func(domain.ProcessingStatus)) (func(), error) {
	return func() {}, nil
}

func (s *stubSynchronizer) Current(_ string) domain.ProcessingStatus {
	return s.status
}

func TestSummarizeBeforeReadyRejected(t *testing.T) {
	svc := NewSummaryService(&mockAnswerService{}, &stubSynchronizer{
		status: domain.ProcessingStatus{TextExtracted: true, CurrentChunk: 3, TotalChunks: 10},
	})

	_, err := svc.Summarize(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestSummarizeAfterFailedJobSurfacesProcessingError(t *testing.T) {
	svc := NewSummaryService(&mockAnswerService{}, &stubSynchronizer{
		status: domain.ProcessingStatus{Error: "embedding model unavailable"},
	})

	_, err := svc.Summarize(context.Background(), "doc-1")
	require.Error(t, err)
	assert.True(t, domain.IsTerminalProcessing(err))
	assert.NotErrorIs(t, err, domain.ErrNotReady)
}

func TestSummarizeHappyPath(t *testing.T) {
	answers := &mockAnswerService{
		sections: []domain.SummarySection{
			{Title: "Overview", Content: "A quarterly report.", Icon: "📄"},
			{Title: "Key Findings", Content: "Revenue grew 10%.", Icon: "🔍"},
		},
	}
	svc := NewSummaryService(answers, &stubSynchronizer{status: readyStatus()})

	sections, err := svc.Summarize(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Overview", sections[0].Title)
}

func TestSummarizeServiceFailurePropagates(t *testing.T) {
	answers := &mockAnswerService{
		summaryErr: &domain.ServiceError{Op: "generate summary", StatusCode: 500},
	}
	svc := NewSummaryService(answers, &stubSynchronizer{status: readyStatus()})

	_, err := svc.Summarize(context.Background(), "doc-1")
	require.Error(t, err)
	assert.True(t, domain.IsService(err))
}

func TestRenderSummaryText(t *testing.T) {
	meta := &domain.DocumentMetadata{
		FileName:   "report.pdf",
		PageCount:  12,
		Language:   "English",
		UploadedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	sections := []domain.SummarySection{
		{Title: "Overview", Content: "A quarterly report."},
		{Title: "Key Findings", Content: "Revenue grew 10%."},
	}

	got := RenderSummaryText(meta, sections)

	assert.Contains(t, got, "DOCUMENT SUMMARY")
	assert.Contains(t, got, "Document: report.pdf")
	assert.Contains(t, got, "Pages: 12")
	assert.Contains(t, got, "Language: English")
	assert.Contains(t, got, "OVERVIEW")
	assert.Contains(t, got, "KEY FINDINGS")
	assert.Contains(t, got, "Revenue grew 10%.")

	// Deterministic export: identical input, identical bytes.
	assert.Equal(t, got, RenderSummaryText(meta, sections))
}

func TestRenderSummaryTextOmitsUnknownFields(t *testing.T) {
	meta := &domain.DocumentMetadata{FileName: "report.pdf"}

	got := RenderSummaryText(meta, nil)
	assert.NotContains(t, got, "Pages:")
	assert.NotContains(t, got, "Language:")
}
