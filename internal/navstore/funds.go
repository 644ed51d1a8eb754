package navstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adivish/fundlens/internal/contracts"
)

// FundRepository reads the fund master from data.funds. The scoring
// service never writes it; the collectors own that table.
type FundRepository struct {
	pool *pgxpool.Pool
}

func NewFundRepository(pool *pgxpool.Pool) *FundRepository {
	return &FundRepository{pool: pool}
}

const fundColumns = `
	id, scheme_code, fund_name, amc_name,
	category, subcategory,
	inception_date, expense_ratio, aum_crores,
	COALESCE(benchmark_name, '')
`

// GetAll returns every fund, ordered by id for stable batch runs.
func (r *FundRepository) GetAll(ctx context.Context) ([]*contracts.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM data.funds ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds: %w", err)
	}
	defer rows.Close()

	return scanFunds(rows)
}

// GetByID returns one fund, or ErrNotFound.
func (r *FundRepository) GetByID(ctx context.Context, id int64) (*contracts.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM data.funds WHERE id = $1`

	fund, err := scanFund(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fund %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund %d: %w", id, err)
	}
	return fund, nil
}

// GetByIDs returns the funds with the given ids, ordered by id. Missing
// ids are simply absent from the result.
func (r *FundRepository) GetByIDs(ctx context.Context, ids []int64) ([]*contracts.Fund, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + fundColumns + ` FROM data.funds WHERE id = ANY($1) ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds by ids: %w", err)
	}
	defer rows.Close()

	return scanFunds(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFund(row rowScanner) (*contracts.Fund, error) {
	var f contracts.Fund
	err := row.Scan(
		&f.ID, &f.SchemeCode, &f.FundName, &f.AmcName,
		&f.Category, &f.Subcategory,
		&f.InceptionDate, &f.ExpenseRatio, &f.AumCrores,
		&f.BenchmarkName,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFunds(rows pgx.Rows) ([]*contracts.Fund, error) {
	var funds []*contracts.Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}
	return funds, nil
}
