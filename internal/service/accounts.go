package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/store"
	"retailops/backend/internal/xid"
)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(stored string, input string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (domain.Account, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Account{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Account{}, err
	}
	username := strings.TrimSpace(req.Username)
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleWorker
	}
	return s.createAccount(ctx, username, req.Password, role)
}

func (s *Service) createAccount(ctx context.Context, username, password, role string) (domain.Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.repo.CreateAccount(ctx, domain.Account{
		UID:          xid.New("usr"),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock(),
	})
	if err != nil {
		return domain.Account{}, err
	}
	logger.Info(ctx, "account created", "uid", created.UID, "username", created.Username, "role", created.Role)
	return *created, nil
}

// Authenticate checks a username and password pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Account{}, fmt.Errorf("%w: invalid credentials", store.ErrUnauthorized)
	}
	account, err := s.repo.GetAccountByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, fmt.Errorf("%w: invalid credentials", store.ErrUnauthorized)
	}
	if err != nil {
		return domain.Account{}, err
	}
	if !verifyPassword(account.PasswordHash, password) {
		return domain.Account{}, fmt.Errorf("%w: invalid credentials", store.ErrUnauthorized)
	}
	return *account, nil
}

func (s *Service) UpdateAccount(ctx context.Context, uid string, req domain.AccountUpdateRequest) (domain.Account, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Account{}, err
	}
	if req.Username == nil && req.Password == nil && req.Role == nil {
		return domain.Account{}, invalid("username, password or role is required")
	}
	if err := s.check(req); err != nil {
		return domain.Account{}, err
	}

	var patch store.AccountPatch
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		patch.Username = &username
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return domain.Account{}, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}
	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		patch.Role = &role
	}

	updated, err := s.repo.UpdateAccount(ctx, strings.TrimSpace(uid), patch)
	if err != nil {
		return domain.Account{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteAccount(ctx context.Context, uid string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteAccount(ctx, strings.TrimSpace(uid))
}

func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAccounts(ctx)
}

// EnsureAdmin creates the bootstrap admin account unless the username is
// already taken. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username string, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	_, err := s.repo.GetAccountByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := s.createAccount(ctx, username, password, domain.RoleAdmin); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
