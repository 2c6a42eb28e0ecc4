package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driving"
)

// Ensure SummaryService implements the interface.
var _ driving.Summarizer = (*SummaryService)(nil)

// SummaryService generates sectioned document summaries once the
// processing job reports AI-ready.
type SummaryService struct {
	answers  driven.AnswerService
	statuses driving.StatusSynchronizer
}

// NewSummaryService creates a summarizer gated on the synchronizer's
// reconciled status.
func NewSummaryService(answers driven.AnswerService, statuses driving.StatusSynchronizer) *SummaryService {
	return &SummaryService{
		answers:  answers,
		statuses: statuses,
	}
}

// Summarize produces a sectioned summary of the document. Before the
// job is terminal it fails with domain.ErrNotReady; after a terminal
// job failure it surfaces the processing error instead.
func (s *SummaryService) Summarize(ctx context.Context, documentID string) ([]domain.SummarySection, error) {
	status := s.statuses.Current(documentID)
	if status.Error != "" {
		return nil, fmt.Errorf("summarize: %w", &domain.TerminalProcessingError{
			DocumentID: documentID,
			Reason:     status.Error,
		})
	}
	if !status.AIReady {
		return nil, fmt.Errorf("summarize: %w", domain.ErrNotReady)
	}

	sections, err := s.answers.GenerateSummary(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return sections, nil
}

// RenderSummaryText renders a generated summary as a plain-text
// export. Deterministic for a given document and summary: no
// timestamps or random content.
func RenderSummaryText(meta *domain.DocumentMetadata, sections []domain.SummarySection) string {
	var b strings.Builder

	b.WriteString("DOCUMENT SUMMARY\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Document: %s\n", meta.FileName)
	if meta.PageCount > 0 {
		fmt.Fprintf(&b, "Pages: %d\n", meta.PageCount)
	}
	if meta.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", meta.Language)
	}
	b.WriteString("\n")

	for _, section := range sections {
		b.WriteString(strings.ToUpper(section.Title) + "\n")
		b.WriteString(strings.Repeat("-", 60) + "\n")
		b.WriteString(section.Content + "\n\n")
	}

	return b.String()
}
