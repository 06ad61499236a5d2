// Package inventory_repo provides the PostgreSQL lot ledger.
package inventory_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/domain"
	"yiyostore/internal/domain/inventory"
	"yiyostore/internal/infrastructure/storage/postgres"
)

const lotTable = "inv_lot"

// LotRepo implements inventory.Repository. Every remaining-quantity
// change goes through Adjust, which also writes an audit row.
type LotRepo struct {
	txManager  *postgres.TxManager
	audit      *postgres.AuditService
	selectCols []string
}

// NewLotRepo creates a lot repository.
func NewLotRepo(txManager *postgres.TxManager, audit *postgres.AuditService) *LotRepo {
	return &LotRepo{
		txManager:  txManager,
		audit:      audit,
		selectCols: postgres.ExtractDBColumns[inventory.Lot](),
	}
}

var _ inventory.Repository = (*LotRepo)(nil)

func (r *LotRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *LotRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(r.selectCols...).
		From(lotTable)
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, lot *inventory.Lot) error {
	data := postgres.StructToMap(lot)

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder().
		Insert(lotTable).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}

	return nil
}

// GetByID retrieves a lot by ID.
func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*inventory.Lot, error) {
	lot := &inventory.Lot{}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": lotID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, lot, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", lotID.String())
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}

	return lot, nil
}

// ListEligible returns the lots of a product in the given states,
// oldest acquisition first, ties broken by id. When called inside a
// transaction the rows are locked FOR UPDATE so concurrent allocators
// serialize on the same product.
func (r *LotRepo) ListEligible(ctx context.Context, productID id.ID, states []inventory.LotState) ([]*inventory.Lot, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"state": states}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("acquired_at ASC", "id ASC")

	if r.txManager.GetTx(ctx) != nil {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lots := make([]*inventory.Lot, 0)
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("list eligible lots: %w", err)
	}

	return lots, nil
}

// Adjust atomically changes a lot's remaining quantity by delta. The
// WHERE clause rejects any change that would drive remaining negative,
// so the non-negativity invariant is enforced at the database level
// regardless of caller behavior.
func (r *LotRepo) Adjust(ctx context.Context, lotID id.ID, delta int64) error {
	sql := `
		UPDATE inv_lot
		SET remaining = remaining + $2, version = version + 1
		WHERE id = $1 AND remaining + $2 >= 0
		RETURNING remaining
	`

	querier := r.txManager.GetQuerier(ctx)

	var newRemaining int64
	err := querier.QueryRow(ctx, sql, lotID, delta).Scan(&newRemaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyAdjustFailure(ctx, lotID, delta)
		}
		return fmt.Errorf("adjust lot: %w", err)
	}

	if err := r.audit.LogChange(ctx, "lot", lotID, postgres.AuditActionAdjust, map[string]any{
		"delta":     delta,
		"remaining": newRemaining,
	}); err != nil {
		return fmt.Errorf("audit adjust: %w", err)
	}

	return nil
}

// classifyAdjustFailure distinguishes a missing lot from a rejected
// negative adjustment.
func (r *LotRepo) classifyAdjustFailure(ctx context.Context, lotID id.ID, delta int64) error {
	lot, err := r.GetByID(ctx, lotID)
	if err != nil {
		return err
	}
	return apperror.NewInvalidAdjustment(lotID.String(), lot.Remaining, delta)
}

// List returns lots matching the filter.
func (r *LotRepo) List(ctx context.Context, filter inventory.ListFilter) (domain.ListResult[*inventory.Lot], error) {
	result := domain.ListResult[*inventory.Lot]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if len(filter.States) > 0 {
		q = q.Where(squirrel.Eq{"state": filter.States})
	}
	if filter.AcquiredFrom != nil {
		q = q.Where(squirrel.GtOrEq{"acquired_at": *filter.AcquiredFrom})
	}
	if filter.AcquiredTo != nil {
		q = q.Where(squirrel.LtOrEq{"acquired_at": *filter.AcquiredTo})
	}
	if filter.ExcludeEmpty {
		q = q.Where(squirrel.Gt{"remaining": 0})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	countQ := r.builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("acquired_at ASC", "id ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	items := make([]*inventory.Lot, 0)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return result, fmt.Errorf("list lots: %w", err)
	}
	result.Items = items

	return result, nil
}
