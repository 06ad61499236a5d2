// Package order_repo provides the PostgreSQL order repository.
package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/domain"
	"yiyostore/internal/domain/orders"
	"yiyostore/internal/infrastructure/storage/postgres"
)

const (
	orderTable = "doc_order"
	lineTable  = "doc_order_line"
)

var lineColumns = postgres.ExtractDBColumns[orders.OrderLine]()

// OrderRepo implements orders.Repository. Lines are written with the
// COPY protocol since an order with many split allocations can carry
// dozens of rows.
type OrderRepo struct {
	txManager  *postgres.TxManager
	inserter   *postgres.BatchInserter
	selectCols []string
}

// NewOrderRepo creates an order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txManager:  txManager,
		inserter:   postgres.NewBatchInserter(txManager),
		selectCols: postgres.ExtractDBColumns[orders.Order](),
	}
}

var _ orders.Repository = (*OrderRepo)(nil)

func (r *OrderRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *OrderRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(r.selectCols...).
		From(orderTable)
}

// Create persists the order header and its lines.
func (r *OrderRepo) Create(ctx context.Context, ord *orders.Order) error {
	data := postgres.StructToMap(ord)

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder().
		Insert(orderTable).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return r.insertLines(ctx, ord.Lines)
}

// GetByID loads the order with its lines.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	ord := &orders.Order{}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, ord, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := r.getLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ord.Lines = lines

	return ord, nil
}

// Update persists header changes with optimistic locking.
func (r *OrderRepo) Update(ctx context.Context, ord *orders.Order) error {
	data := postgres.StructToMap(ord)

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("order has no version field")
	}
	// Touch() already bumped the in-memory version; the row still
	// carries the previous one.
	expectedVersion := version - 1

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder().
		Update(orderTable).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": ord.ID}).
		Where(squirrel.Eq{"version": expectedVersion})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("order", ord.ID.String())
	}

	return nil
}

// ReplaceLines swaps the order's line set.
func (r *OrderRepo) ReplaceLines(ctx context.Context, orderID id.ID, lines []orders.OrderLine) error {
	delQ := r.builder().
		Delete(lineTable).
		Where(squirrel.Eq{"order_id": orderID})

	sql, args, err := delQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	return r.insertLines(ctx, lines)
}

// Delete removes the order and its lines.
func (r *OrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	delLines := r.builder().
		Delete(lineTable).
		Where(squirrel.Eq{"order_id": orderID})

	sql, args, err := delLines.ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	delOrder := r.builder().
		Delete(orderTable).
		Where(squirrel.Eq{"id": orderID})

	sql, args, err = delOrder.ToSql()
	if err != nil {
		return fmt.Errorf("build delete order: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("order", orderID.String())
	}

	return nil
}

// List returns order headers matching the filter, newest first.
func (r *OrderRepo) List(ctx context.Context, filter orders.ListFilter) (*domain.ListResult[*orders.Order], error) {
	result := &domain.ListResult[*orders.Order]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	countQ := r.builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("date DESC", "number DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := make([]*orders.Order, 0)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	result.Items = items

	return result, nil
}

func (r *OrderRepo) getLines(ctx context.Context, orderID id.ID) ([]orders.OrderLine, error) {
	q := r.builder().
		Select(lineColumns...).
		From(lineTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	lines := make([]orders.OrderLine, 0)
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *OrderRepo) insertLines(ctx context.Context, lines []orders.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for i := range lines {
		data := postgres.StructToMap(&lines[i])
		row := make([]any, len(lineColumns))
		for j, col := range lineColumns {
			row[j] = data[col]
		}
		rows = append(rows, row)
	}

	if _, err := r.inserter.CopyFromSlice(ctx, lineTable, lineColumns, rows); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}
