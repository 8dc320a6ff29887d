package storage

import (
	"fmt"

	"github.com/mcoot/minimarket/internal/codec"
	"github.com/mcoot/minimarket/internal/model"
)

// Verify checks data read back after a write: it must pass codec validation
// and carry the id it was written under
func Verify(id string, data []byte) error {
	if err := codec.Validate(data); err != nil {
		return err
	}
	if stored := codec.PeekID(data); stored != id {
		return fmt.Errorf("%w: stored id %q does not match %q", model.ErrValidation, stored, id)
	}
	return nil
}
