package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/miboda/internal/config"
	"github.com/iliyamo/miboda/internal/model"
)

// RoleRepo reads the roles table through an optional Redis cache. Cache
// failures fall through to MySQL.
type RoleRepo struct {
	DB    *sql.DB
	Cache *redis.Client
	Cfg   config.RoleCacheConfig
	Log   *slog.Logger
}

func NewRoleRepo(db *sql.DB, cache *redis.Client, cfg config.RoleCacheConfig, log *slog.Logger) *RoleRepo {
	if log == nil {
		log = slog.Default()
	}
	if cache == nil {
		cfg.Enabled = false
	}
	return &RoleRepo{DB: db, Cache: cache, Cfg: cfg, Log: log}
}

func (r *RoleRepo) key(userID string) string { return r.Cfg.Prefix + ":" + userID }

// Role returns the user's role; a user without a roles row is a plain user.
func (r *RoleRepo) Role(ctx context.Context, userID string) (string, error) {
	if r.Cfg.Enabled {
		role, err := r.Cache.Get(ctx, r.key(userID)).Result()
		switch {
		case err == nil:
			return role, nil
		case !errors.Is(err, redis.Nil):
			r.Log.Warn("role cache read failed", "user_id", userID, "err", err)
		}
	}

	var role string
	err := r.DB.QueryRowContext(ctx, "SELECT role FROM roles WHERE user_id=? LIMIT 1", userID).Scan(&role)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		role = model.RoleUser
	case err != nil:
		return "", err
	}

	if r.Cfg.Enabled {
		if err := r.Cache.Set(ctx, r.key(userID), role, r.Cfg.TTL).Err(); err != nil {
			r.Log.Warn("role cache write failed", "user_id", userID, "err", err)
		}
	}
	return role, nil
}

// IsAdmin reports whether the user holds the admin role.
func (r *RoleRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	role, err := r.Role(ctx, userID)
	return role == model.RoleAdmin, err
}

// SetRole stores the user's role and drops the cached answer.
func (r *RoleRepo) SetRole(ctx context.Context, userID, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (user_id, role) VALUES (?,?) ON DUPLICATE KEY UPDATE role=VALUES(role)",
		userID, role)
	if err != nil {
		return translate(err)
	}
	if r.Cfg.Enabled {
		if err := r.Cache.Del(ctx, r.key(userID)).Err(); err != nil {
			r.Log.Warn("role cache invalidate failed", "user_id", userID, "err", err)
		}
	}
	return nil
}
