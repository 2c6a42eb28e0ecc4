package domain

import "time"

// DocumentMetadata holds identity and display facts about one uploaded
// document. Created on upload acknowledgement. PageCount, Language and
// WordCount are filled in only once processing completes; all other
// fields are immutable after creation.
type DocumentMetadata struct {
	// ID is the opaque stable document identifier (primary key).
	ID string

	// FileName is the original upload name, kept for display.
	FileName string

	// FileSizeBytes is the size of the uploaded file.
	FileSizeBytes int64

	// PageCount is the number of pages. Zero until processing completes.
	PageCount int

	// Language is the detected document language. Empty until processing completes.
	Language string

	// WordCount is the extracted word count. Zero until processing completes.
	WordCount int

	// StoragePath is the blob storage reference for the uploaded bytes.
	StoragePath string

	// UploadedAt is when the upload was acknowledged.
	UploadedAt time.Time
}

// SummarySection is one titled section of a generated document summary.
type SummarySection struct {
	// Title is the section heading.
	Title string

	// Content is the section body text.
	Content string

	// Icon is a presentation hint supplied by the backend.
	Icon string
}
