package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
)

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	query, args, err := s.sb.Insert("accounts").
		Columns("uid", "username", "password_hash", "role", "created_at").
		Values(account.UID, account.Username, account.PasswordHash, account.Role, account.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert account: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, conflictOr(err, "username "+account.Username)
	}
	out := account
	return &out, nil
}

func (s *Store) GetAccount(ctx context.Context, uid string) (*domain.Account, error) {
	return s.getAccount(ctx, squirrel.Eq{"uid": uid})
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.getAccount(ctx, squirrel.Eq{"username": username})
}

func (s *Store) getAccount(ctx context.Context, where squirrel.Sqlizer) (*domain.Account, error) {
	query, args, err := s.sb.Select(accountColumns).From("accounts").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account: %w", err)
	}
	var row accountRow
	if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	a := row.toDomain()
	return &a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, uid string, patch store.AccountPatch) (*domain.Account, error) {
	set := map[string]any{}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.PasswordHash != nil {
		set["password_hash"] = *patch.PasswordHash
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}
	if len(set) == 0 {
		return s.GetAccount(ctx, uid)
	}

	query, args, err := s.sb.Update("accounts").SetMap(set).Where(squirrel.Eq{"uid": uid}).
		Suffix("RETURNING " + accountColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update account: %w", err)
	}
	var row accountRow
	if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, conflictOr(err, "username")
	}
	a := row.toDomain()
	return &a, nil
}

func (s *Store) DeleteAccount(ctx context.Context, uid string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM accounts WHERE uid = $1`, uid)
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

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var rows []accountRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows,
		`SELECT `+accountColumns+` FROM accounts ORDER BY username ASC`); err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
