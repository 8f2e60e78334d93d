package sessions

import (
	"context"

	"github.com/vellum-ai/vellum/pkg/models"
)

// Store is the interface for session persistence.
type Store interface {
	// Session CRUD
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error

	// List retrieves sessions, most recently updated first.
	List(ctx context.Context, opts ListOptions) ([]*models.Session, error)

	// Message history
	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)

	// SetCondenseParent marks an existing message as absorbed into the
	// summary identified by condenseID, implementing the compaction forest
	// link described in the context manager. A no-op if messageID is not
	// found in the session's history.
	SetCondenseParent(ctx context.Context, sessionID, messageID, condenseID string) error

	// CreateCheckpoint records a named point (messageIndex = current
	// message count) in sessionID's history that Rollback can truncate
	// back to.
	CreateCheckpoint(ctx context.Context, sessionID, checkpointID, description string) (*models.Checkpoint, error)

	// Rollback truncates sessionID's message list to checkpointID's
	// messageIndex and resets lastSyncedIndex to the same bound (never
	// ahead of the truncated history).
	Rollback(ctx context.Context, sessionID, checkpointID string) error
}

// ListOptions configures session listing.
type ListOptions struct {
	Limit  int
	Offset int
}

// SessionMetadataKey constants for storing compaction bookkeeping in session
// metadata.
const (
	MetaKeyCompactionInfo  = "compaction_info"
	MetaKeyLastCompactedAt = "last_compacted_at"
)
