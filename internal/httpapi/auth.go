package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
)

const tokenIssuer = "retailops"

// Authenticator verifies a username and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username string, password string) (domain.Account, error)
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	accounts Authenticator
	now      func() time.Time
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, accounts Authenticator) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		accounts: accounts,
		now:      time.Now,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	account, err := a.accounts.Authenticate(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL).Truncate(time.Second)
	token, err := a.sign(account, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		Username:    account.Username,
		Role:        account.Role,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return domain.Actor{}, fmt.Errorf("%w: invalid or expired token", store.ErrUnauthorized)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, fmt.Errorf("%w: invalid token subject", store.ErrUnauthorized)
	}
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleWorker {
		return domain.Actor{}, fmt.Errorf("%w: invalid token role", store.ErrUnauthorized)
	}
	return domain.Actor{UID: sub, Username: claims.Username, Role: claims.Role}, nil
}

func (a *AuthManager) sign(account domain.Account, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   account.UID,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: account.Username,
		Role:     account.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
