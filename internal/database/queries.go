package database

// Legacy rows may hold NULL in columns that newer releases always fill, so
// every read tolerates NULL.

const insertCleanOperation = `INSERT INTO clean_operations
	(timestamp, plugin_name, items_count, size_freed, success, error_message)
	VALUES (?, ?, ?, ?, ?, ?)`

const operationColumns = `id, timestamp, plugin_name, items_count, size_freed, success, error_message`

const selectRecentOperations = `SELECT ` + operationColumns + `
	FROM clean_operations
	ORDER BY id DESC
	LIMIT ?`

const selectOperation = `SELECT ` + operationColumns + `
	FROM clean_operations
	WHERE id = ?`

const insertUndoItem = `INSERT INTO undo_log
	(operation_id, item_path, backup_path, can_restore, timestamp, restored, backup_uid, backup_gid)
	VALUES (?, ?, ?, ?, ?, 0, ?, ?)`

const selectUndoItems = `SELECT id, operation_id, item_path, backup_path, can_restore, timestamp,
	restored, restored_timestamp, restore_error, backup_uid, backup_gid
	FROM undo_log
	WHERE operation_id = ?
	ORDER BY id`

const updateUndoRestored = `UPDATE undo_log
	SET restored = ?, restored_timestamp = ?, restore_error = ?
	WHERE id = ?`
