package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/audit"
	"hotelapi/pkg/cache"
	"hotelapi/pkg/logger"
)

const (
	msgUserGone       = "Usuario asociado a la API key no encontrado"
	msgBadCredentials = "Usuario o contraseña incorrectos"
	msgInvalidSession = "Token de sesión inválido o expirado"
	msgKeyNotFound    = "API key con ID %d no encontrada"
	msgKeyNotOwned    = "No tiene permisos para revocar esta API key"
	defaultKeyScope   = "rpc"
	sessionMethod     = "session"
	apiKeyMethod      = "api_key"
)

// Store is the persistence the service needs; *Repository satisfies it.
type Store interface {
	UserByID(ctx context.Context, id int64) (*User, error)
	UserByLogin(ctx context.Context, login string) (*User, error)
	TouchLogin(ctx context.Context, userID int64) error
	CreateKey(ctx context.Context, userID int64, name, scope, index, hash string) (int64, error)
	ActiveKeysByIndex(ctx context.Context, index string) ([]KeyRecord, error)
	KeysByUser(ctx context.Context, userID int64) ([]KeyRecord, error)
	KeyByID(ctx context.Context, id int64) (*KeyRecord, error)
	RevokeKey(ctx context.Context, id int64) error
}

// AuditFunc records security-relevant actions. Nil disables auditing.
type AuditFunc func(ctx context.Context, userID int64, action, actor string, metadata any) error

type Service struct {
	Store    Store
	Cache    cache.Cache
	Tokens   TokenIssuer
	CacheTTL time.Duration
	Audit    AuditFunc
	Now      func() time.Time
}

type cachedKey struct {
	UserID  int64  `json:"user_id"`
	KeyID   int64  `json:"key_id"`
	Login   string `json:"login"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AuthenticateKey resolves an API key to its owner.
func (s *Service) AuthenticateKey(ctx context.Context, key string) (*api.Principal, error) {
	ck := cacheKey(s.Tokens.Secret, key)
	if s.Cache != nil {
		if v, err := s.Cache.Get(ctx, ck); err == nil {
			var c cachedKey
			if json.Unmarshal([]byte(v), &c) == nil {
				return &api.Principal{UserID: c.UserID, Login: c.Login, Name: c.Name, IsAdmin: c.IsAdmin, Method: apiKeyMethod, KeyID: c.KeyID}, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			logger.FromContext(ctx).Warn("api key cache read failed", zap.Error(err))
		}
	}

	rec, err := s.matchKey(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}

	u, err := s.Store.UserByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active {
		return nil, apperr.Unauthorized(msgUserGone)
	}

	p := &api.Principal{UserID: u.ID, Login: u.Login, Name: u.Name, IsAdmin: u.IsAdmin, Method: apiKeyMethod, KeyID: rec.ID}
	if s.Cache != nil {
		b, _ := json.Marshal(cachedKey{UserID: u.ID, KeyID: rec.ID, Login: u.Login, Name: u.Name, IsAdmin: u.IsAdmin})
		if err := s.Cache.Set(ctx, ck, string(b), s.CacheTTL); err != nil {
			logger.FromContext(ctx).Warn("api key cache write failed", zap.Error(err))
		} else {
			_ = s.Cache.Set(ctx, cacheIDKey(rec.ID), ck, s.CacheTTL)
		}
	}
	return p, nil
}

func (s *Service) matchKey(ctx context.Context, key string) (*KeyRecord, error) {
	if len(key) < keyIndexLen {
		return nil, nil
	}
	candidates, err := s.Store.ActiveKeysByIndex(ctx, KeyIndex(key))
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if keyMatches(candidates[i].hash, key) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// AuthenticateToken verifies a session JWT and loads its user.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*api.Principal, error) {
	sess, err := s.Tokens.Verify(token, s.now())
	if err != nil {
		logger.FromContext(ctx).Debug("session token rejected", zap.Error(err))
		return nil, apperr.Unauthorized(msgInvalidSession)
	}
	u, err := s.Store.UserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active {
		return nil, apperr.Unauthorized(msgUserGone)
	}
	return &api.Principal{UserID: u.ID, Login: u.Login, Name: u.Name, IsAdmin: u.IsAdmin, Method: sessionMethod}, nil
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	UserLogin string    `json:"user_login"`
}

func (s *Service) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	u, err := s.Store.UserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active || !passwordMatches(u.PasswordHash, password) {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}

	tok, exp, err := s.Tokens.Issue(u.ID, u.Login, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.TouchLogin(ctx, u.ID); err != nil {
		logger.FromContext(ctx).Warn("touch last login failed", zap.Error(err))
	}
	s.audit(ctx, u.ID, audit.ActionLogin, u.Login, map[string]any{"method": sessionMethod})

	return &LoginResult{Token: tok, ExpiresAt: exp, UserID: u.ID, UserLogin: u.Login}, nil
}

type IssuedKey struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	APIKey    string `json:"api_key"`
	UserID    int64  `json:"user_id"`
	UserLogin string `json:"user_login"`
	Warning   string `json:"warning"`
}

func (s *Service) GenerateKey(ctx context.Context, p *api.Principal, name, scope string) (*IssuedKey, error) {
	if scope == "" {
		scope = defaultKeyScope
	}
	k, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	id, err := s.Store.CreateKey(ctx, p.UserID, name, scope, k.Index, k.Hash)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, p.UserID, audit.ActionAPIKeyCreated, p.Login, map[string]any{"key_id": id, "name": name})
	logger.FromContext(ctx).Info("api key generated", zap.Int64("key_id", id), zap.String("name", name))

	return &IssuedKey{
		ID:        id,
		Name:      name,
		APIKey:    k.Plaintext,
		UserID:    p.UserID,
		UserLogin: p.Login,
		Warning:   "Guarde esta API key de forma segura. No podrá verla nuevamente.",
	}, nil
}

func (s *Service) ListKeys(ctx context.Context, userID int64) ([]KeyRecord, error) {
	return s.Store.KeysByUser(ctx, userID)
}

// RevokeKey revokes a key owned by p and drops its cached resolution. It
// returns the revoked key's name.
func (s *Service) RevokeKey(ctx context.Context, p *api.Principal, keyID int64) (string, error) {
	rec, err := s.Store.KeyByID(ctx, keyID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", apperr.NotFoundf(msgKeyNotFound, keyID)
	}
	if rec.UserID != p.UserID {
		return "", apperr.Forbidden(msgKeyNotOwned)
	}
	if err := s.Store.RevokeKey(ctx, keyID); err != nil {
		return "", err
	}
	s.forget(ctx, keyID)
	s.audit(ctx, p.UserID, audit.ActionAPIKeyRevoked, p.Login, map[string]any{"key_id": keyID, "name": rec.Name})
	return rec.Name, nil
}

func (s *Service) forget(ctx context.Context, keyID int64) {
	if s.Cache == nil {
		return
	}
	idKey := cacheIDKey(keyID)
	ck, err := s.Cache.Get(ctx, idKey)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.FromContext(ctx).Warn("api key cache read failed", zap.Error(err))
		}
		return
	}
	if err := s.Cache.Delete(ctx, ck, idKey); err != nil {
		logger.FromContext(ctx).Warn("api key cache invalidation failed", zap.Int64("key_id", keyID), zap.Error(err))
	}
}

// Check resolves a key without touching the cache, for the validate endpoints.
func (s *Service) Check(ctx context.Context, key string) (*User, error) {
	rec, err := s.matchKey(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	u, err := s.Store.UserByID(ctx, rec.UserID)
	if err != nil || u == nil || !u.Active {
		return nil, err
	}
	return u, nil
}

func (s *Service) audit(ctx context.Context, userID int64, action, actor string, metadata any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit(ctx, userID, action, actor, metadata); err != nil {
		logger.FromContext(ctx).Warn("audit insert failed", zap.String("action", action), zap.Error(err))
	}
}
