package domain

// ProcessingStatus is the reconciled state of the asynchronous backend
// job that extracts text and builds embeddings for one document.
//
// Invariants:
//   - AIReady implies TextExtracted and EmbeddingsBuilt.
//   - A non-empty Error is terminal: AIReady is permanently false
//     for this job instance.
type ProcessingStatus struct {
	// TextExtracted is true once text extraction has completed.
	TextExtracted bool

	// EmbeddingsBuilt is true once vector embeddings have been built.
	EmbeddingsBuilt bool

	// AIReady is true once the document can answer questions.
	AIReady bool

	// CurrentChunk is the chunk currently being embedded.
	CurrentChunk int

	// TotalChunks is the total number of chunks to embed.
	TotalChunks int

	// Error is the terminal job failure, empty when the job is healthy.
	Error string
}

// Rank tiers. Higher tiers always win the merge; within the chunk
// progress tier the completed fraction breaks the tie.
const (
	rankNone = iota
	rankTextExtracted
	rankChunkProgress
	rankAIReady
	rankFailed
)

// rank imposes the total order used to resolve out-of-order updates:
// error present > aiReady > chunk progress > textExtracted.
func (s ProcessingStatus) rank() (tier int, fraction float64) {
	switch {
	case s.Error != "":
		return rankFailed, 0
	case s.AIReady:
		return rankAIReady, 0
	case s.CurrentChunk > 0 && s.TotalChunks > 0:
		return rankChunkProgress, float64(s.CurrentChunk) / float64(s.TotalChunks)
	case s.TextExtracted:
		return rankTextExtracted, 0
	default:
		return rankNone, 0
	}
}

// Terminal reports whether the job has reached a final state,
// either success (AIReady) or failure (Error).
func (s ProcessingStatus) Terminal() bool {
	return s.AIReady || s.Error != ""
}

// Progress returns display progress in [0, 100].
// Mirrors the job's coarse stages when chunk counts are unknown.
func (s ProcessingStatus) Progress() int {
	switch {
	case s.AIReady:
		return 100
	case s.TotalChunks > 0:
		return s.CurrentChunk * 100 / s.TotalChunks
	case s.TextExtracted:
		return 30
	default:
		return 10
	}
}

// AtLeast reports whether s ranks greater than or equal to other.
func (s ProcessingStatus) AtLeast(other ProcessingStatus) bool {
	st, sf := s.rank()
	ot, of := other.rank()
	if st != ot {
		return st > ot
	}
	return sf >= of
}

// normalized enforces the status invariants on a raw incoming value.
func (s ProcessingStatus) normalized() ProcessingStatus {
	if s.Error != "" {
		s.AIReady = false
		return s
	}
	if s.AIReady {
		s.TextExtracted = true
		s.EmbeddingsBuilt = true
	}
	return s
}

// MergeStatus reconciles an incoming status against the currently
// displayed one. The incoming value is applied only if its rank is
// greater than or equal to the current rank; otherwise it is discarded.
// This makes reconciliation order-independent and idempotent: replays,
// duplicate pushes and out-of-order poll results cannot regress the
// displayed value.
func MergeStatus(current, incoming ProcessingStatus) ProcessingStatus {
	// A terminal failure never yields to a late success replay.
	if current.Error != "" {
		return current
	}
	incoming = incoming.normalized()
	if incoming.AtLeast(current) {
		return incoming
	}
	return current
}
