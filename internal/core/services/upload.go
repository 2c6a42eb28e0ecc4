package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driving"
	"github.com/deepread-labs/deepread-core/internal/logger"
)

// Ensure UploadService implements the interface.
var _ driving.Uploader = (*UploadService)(nil)

// UploadService runs the upload flow: blob storage to obtain a stable
// reference, document metadata persistence, and the asynchronous
// processing trigger. Processing itself is fire-and-forget; the
// status synchronizer tracks it from there.
type UploadService struct {
	identity driven.IdentityProvider
	blobs    driven.BlobStore // optional
	store    driven.ChatStore
	answers  driven.AnswerService

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewUploadService creates the upload flow. blobs may be nil when the
// backend receives the bytes directly.
func NewUploadService(identity driven.IdentityProvider, blobs driven.BlobStore, store driven.ChatStore, answers driven.AnswerService) *UploadService {
	return &UploadService{
		identity: identity,
		blobs:    blobs,
		store:    store,
		answers:  answers,
		now:      time.Now,
	}
}

// Upload stores the file bytes, persists document metadata and
// triggers backend processing. It returns once the backend
// acknowledges the job. An absent user id means no subsystem may
// start: the whole flow is rejected up front.
func (u *UploadService) Upload(ctx context.Context, fileName string, data []byte) (*domain.DocumentMetadata, error) {
	userID := u.identity.CurrentUserID()
	if userID == "" {
		return nil, fmt.Errorf("upload: %w", domain.ErrSessionInvalid)
	}
	if fileName == "" || len(data) == 0 {
		return nil, fmt.Errorf("upload: %w", domain.ErrInvalidInput)
	}

	documentID := uuid.NewString()
	uploadedAt := u.now()

	// Timestamp prefix keeps repeated uploads of the same file name
	// from colliding in blob storage.
	path := fmt.Sprintf("%s/%d_%s", userID, uploadedAt.UnixMilli(), fileName)
	if u.blobs != nil {
		stored, err := u.blobs.Store(ctx, path, data)
		if err != nil {
			return nil, fmt.Errorf("upload: store blob: %w", err)
		}
		path = stored
	}

	meta := &domain.DocumentMetadata{
		ID:            documentID,
		FileName:      fileName,
		FileSizeBytes: int64(len(data)),
		StoragePath:   path,
		UploadedAt:    uploadedAt,
	}

	// The local record exists before the backend job does, so a
	// running job always has a document row to report against.
	if err := u.store.SaveDocument(ctx, meta); err != nil {
		return nil, fmt.Errorf("upload: save metadata: %w", err)
	}

	snap, err := u.answers.TriggerProcessing(ctx, documentID, fileName, data)
	if err != nil {
		u.recordTriggerFailure(documentID, err)
		return nil, fmt.Errorf("upload: trigger processing: %w", err)
	}

	meta.PageCount = snap.PageCount
	meta.Language = snap.Language
	meta.WordCount = snap.WordCount
	if err := u.store.SaveDocument(ctx, meta); err != nil {
		// The row exists and the job is running; the status
		// synchronizer refreshes this metadata as the job reports it.
		logger.Warn("metadata refresh for %s failed: %v", documentID, err)
	}

	logger.Info("uploaded %s as document %s (%d bytes)", fileName, documentID, len(data))
	return meta, nil
}

// recordTriggerFailure marks the saved document as failed so its row
// does not read as a job still pending. Best effort: the upload error
// itself is what the caller sees.
func (u *UploadService) recordTriggerFailure(documentID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := domain.DocumentSnapshot{
		Status: domain.ProcessingStatus{Error: cause.Error()},
	}
	if err := u.store.UpdateDocumentProcessing(ctx, documentID, snap); err != nil {
		logger.Warn("recording trigger failure for %s failed: %v", documentID, err)
	}
}
