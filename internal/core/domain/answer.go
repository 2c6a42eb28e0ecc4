package domain

// Answer is the raw result of one question round-trip: the answer
// text plus the source citations the backend grounded it on.
type Answer struct {
	// Text is the raw answer before formatting.
	Text string

	// Sources are the citations supporting the answer, in backend order.
	Sources []Source
}

// DocumentSnapshot is a point-in-time view of one document as reported
// by the backend: the processing status plus whatever metadata the
// processing job has filled in so far.
type DocumentSnapshot struct {
	// Status is the job status at fetch time.
	Status ProcessingStatus

	// PageCount is the page count, zero until extraction completes.
	PageCount int

	// Language is the detected language, empty until extraction completes.
	Language string

	// WordCount is the word count, zero until extraction completes.
	WordCount int
}
