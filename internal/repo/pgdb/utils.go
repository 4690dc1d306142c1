package pgdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Egor213/JewelCRM/internal/repo/repoerrs"
	"github.com/Egor213/JewelCRM/internal/repo/repotypes"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const (
	defaultLimit = uint64(50)
	maxLimit     = uint64(500)
)

func BuildCustomerQueryFilters(filter repotypes.CustomerFilter) ([]sq.Sqlizer, uint64, uint64) {
	conds := []sq.Sqlizer{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		conds = append(conds, sq.Or{
			sq.ILike{"email": pattern},
			sq.ILike{"full_name": pattern},
			sq.ILike{"phone": pattern},
		})
	}

	limit := defaultLimit
	if filter.Limit > 0 {
		limit = uint64(filter.Limit)
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var offset uint64
	if filter.Offset > 0 {
		offset = uint64(filter.Offset)
	}

	return conds, limit, offset
}

// translateErr attaches the repository sentinel matching a driver error while
// keeping the driver error in the chain.
func translateErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %w", repoerrs.ErrNotFound, err)
	case errorsUtils.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", repoerrs.ErrAlreadyExists, err)
	case errorsUtils.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", repoerrs.ErrReferenceMissing, err)
	}
	return err
}
