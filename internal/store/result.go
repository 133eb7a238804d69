package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
)

// entsqlResult captures the sql.Result of an Exec through the ent driver.
type entsqlResult struct {
	Result sql.Result
}

func (r entsqlResult) requireOne(id uuid.UUID) error {
	if r.Result == nil {
		return nil
	}
	n, err := r.Result.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return common.NewAppError(common.CodeStore, fmt.Sprintf("run %s", id), common.ErrNotFound)
	}
	return nil
}
