package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
)

func (s *Store) ListStores(ctx context.Context) ([]domain.Store, error) {
	var rows []storeRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, `SELECT `+storeColumns+` FROM stores ORDER BY id ASC`); err != nil {
		return nil, err
	}
	out := make([]domain.Store, 0, len(rows))
	for _, row := range rows {
		st, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	query, args, err := s.sb.Select(storeColumns).From("stores").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select store: %w", err)
	}
	var row storeRow
	if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	st, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	extra, err := encodeJSON(st.Extra)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.Insert("stores").
		Columns("id", "name", "rent_monthly_cents", "rent_daily_cents", "extra", "created_at", "updated_at").
		Values(st.ID, st.Name, int64(st.RentMonthly), int64(st.RentDaily), extra, st.CreatedAt, st.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert store: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, conflictOr(err, "store "+st.ID)
	}
	out := st
	return &out, nil
}

func (s *Store) UpdateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	extra, err := encodeJSON(st.Extra)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.Update("stores").
		SetMap(map[string]any{
			"name":               st.Name,
			"rent_monthly_cents": int64(st.RentMonthly),
			"rent_daily_cents":   int64(st.RentDaily),
			"extra":              extra,
			"updated_at":         st.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": st.ID}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update store: %w", err)
	}
	var createdAt time.Time
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&createdAt); err != nil {
		return nil, notFoundOr(err)
	}
	out := st
	out.CreatedAt = createdAt.UTC()
	return &out, nil
}

func (s *Store) DeleteStore(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
