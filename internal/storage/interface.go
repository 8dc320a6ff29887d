package storage

import (
	"context"
)

// RecordExt is the extension of a persisted profile record
const RecordExt = ".json"

// BackupSuffix marks the transient copy kept while a record is overwritten
const BackupSuffix = ".backup"

// Storage defines durable per-profile storage of serialized records.
//
// Write follows backup-then-overwrite-then-verify: existing content is copied
// aside, the new content is written and read back, and if the read-back does
// not pass Verify the previous content is restored and a validation error is
// returned.
type Storage interface {
	Exists(ctx context.Context, id string) (bool, error)
	Write(ctx context.Context, id string, data []byte) error
	Read(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error

	// ListIDs returns stored record ids in backend enumeration order,
	// excluding backups
	ListIDs(ctx context.Context) ([]string, error)

	// Size returns the total bytes held by the store, backups included
	Size(ctx context.Context) (int64, error)
}
