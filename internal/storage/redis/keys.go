package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/minimarket/internal/storage"
)

// profileKey returns the Redis key for a serialized profile
func profileKey(prefix, id string) string {
	return fmt.Sprintf("%s:profile:%s", prefix, id)
}

// backupKey returns the Redis key for the transient copy kept during a write
func backupKey(prefix, id string) string {
	return profileKey(prefix, id) + storage.BackupSuffix
}

// profilePattern matches every profile and backup key under the prefix
func profilePattern(prefix string) string {
	return fmt.Sprintf("%s:profile:*", prefix)
}

// idFromKey extracts the profile id from a record key; ok is false for backups
func idFromKey(prefix, key string) (string, bool) {
	if strings.HasSuffix(key, storage.BackupSuffix) {
		return "", false
	}
	return strings.CutPrefix(key, fmt.Sprintf("%s:profile:", prefix))
}
