package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/minimarket/internal/model"
)

const (
	// idSuffixRange bounds the random suffix of generated IDs
	idSuffixRange = 10000

	// maxIDAttempts is how many candidate IDs are tried before giving up
	maxIDAttempts = 10
)

// formatID builds an ID of the form profile_<unix seconds>_<4 digit suffix>
func formatID(unix int64, suffix int) model.ProfileID {
	return model.ProfileID(fmt.Sprintf("profile_%d_%04d", unix, suffix))
}

// generateID returns an ID not used by any cached, stored or in-flight
// profile. The caller must release the returned ID once it has been saved.
func (r *Registry) generateID(ctx context.Context) (model.ProfileID, error) {
	unix := r.clock.Now().Unix()
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id := formatID(unix, r.random.Intn(idSuffixRange))
		if r.cache.Contains(id) || !r.reserveID(id) {
			r.logger.Debug("generated id already in use", slog.String("profile_id", string(id)))
			continue
		}
		exists, err := r.storage.Exists(ctx, string(id))
		if err != nil {
			r.releaseID(id)
			return "", err
		}
		if exists {
			r.releaseID(id)
			r.logger.Debug("generated id collides with stored profile", slog.String("profile_id", string(id)))
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("%w after %d attempts", model.ErrIDExhausted, maxIDAttempts)
}

// reserveID marks id as taken by an in-flight Create
func (r *Registry) reserveID(id model.ProfileID) bool {
	r.idLocksMu.Lock()
	defer r.idLocksMu.Unlock()
	if r.reserved[id] {
		return false
	}
	r.reserved[id] = true
	return true
}

func (r *Registry) releaseID(id model.ProfileID) {
	r.idLocksMu.Lock()
	defer r.idLocksMu.Unlock()
	delete(r.reserved, id)
}
