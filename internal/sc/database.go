package sc

import "sc-go/internal/model"

// Database provides durable storage for clean operations and their undo items.
// Each write commits on its own; no transaction spans more than one record.
type Database interface {
	// Clean operations

	// LogCleanOperation records a clean and returns its store-assigned ID.
	// An empty errorMessage is stored as NULL.
	LogCleanOperation(pluginName string, itemsCount int, sizeFreed int64, success bool, errorMessage string) (int64, error)

	// GetRecentOperations returns at most limit operations, newest first.
	GetRecentOperations(limit int) ([]*model.CleanOperation, error)

	// GetOperation returns a single operation or ErrOperationNotFound.
	GetOperation(id int64) (*model.CleanOperation, error)

	// Undo items

	// SaveUndoItem inserts the item and fills in its ID and CreatedAt.
	SaveUndoItem(item *model.UndoItem) (int64, error)

	// GetUndoItems returns the undo items of an operation ordered by ID.
	GetUndoItems(operationID int64) ([]*model.UndoItem, error)

	// MarkUndoRestored overwrites the restore outcome of an undo item.
	// The restored timestamp is set only when success is true.
	MarkUndoRestored(undoItemID int64, success bool, errorMessage string) error

	// Schema

	GetSchemaVersion() (int, error)
	GetPendingMigrations() ([]int, error)
	ApplyMigrations() ([]int, error)

	// Close closes the database connection.
	Close() error
}
