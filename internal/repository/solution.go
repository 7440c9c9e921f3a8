// Package repository 提供数据访问层
package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tourplan/tourplan/pkg/errors"
)

// DB 仓储所需的最小数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CachedSolution 缓存的求解结果
type CachedSolution struct {
	RequestHash string          `json:"request_hash"`
	RequestID   string          `json:"request_id"`
	Response    json.RawMessage `json:"response"`
	Score       float64         `json:"score"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// SolutionRepositoryInterface 求解缓存仓储接口
type SolutionRepositoryInterface interface {
	Get(ctx context.Context, hash string) (*CachedSolution, error)
	Put(ctx context.Context, sol *CachedSolution) error
	Purge(ctx context.Context) (int64, error)
}

// SolutionRepository 求解缓存仓储实现
// 求解是纯函数：请求体哈希相同则结果相同，可直接复用。
type SolutionRepository struct {
	db DB
}

// NewSolutionRepository 创建求解缓存仓储
func NewSolutionRepository(db DB) *SolutionRepository {
	return &SolutionRepository{db: db}
}

// HashRequest 计算请求体的缓存键
func HashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Get 查询未过期的缓存结果，未命中返回 nil
func (r *SolutionRepository) Get(ctx context.Context, hash string) (*CachedSolution, error) {
	const query = `
		SELECT request_hash, request_id, response, score, status, created_at, expires_at
		FROM solution_cache
		WHERE request_hash = $1 AND expires_at > now()`

	sol := &CachedSolution{}
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&sol.RequestHash, &sol.RequestID, &sol.Response,
		&sol.Score, &sol.Status, &sol.CreatedAt, &sol.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询求解缓存失败")
	}
	return sol, nil
}

// Put 写入缓存结果，键冲突时覆盖
func (r *SolutionRepository) Put(ctx context.Context, sol *CachedSolution) error {
	const query = `
		INSERT INTO solution_cache (request_hash, request_id, response, score, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, now(), $6)
		ON CONFLICT (request_hash) DO UPDATE SET
			request_id = EXCLUDED.request_id,
			response   = EXCLUDED.response,
			score      = EXCLUDED.score,
			status     = EXCLUDED.status,
			created_at = now(),
			expires_at = EXCLUDED.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		sol.RequestHash, sol.RequestID, sol.Response, sol.Score, sol.Status, sol.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "写入求解缓存失败")
	}
	return nil
}

// Purge 清理已过期的缓存行
func (r *SolutionRepository) Purge(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM solution_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "清理求解缓存失败")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("读取清理行数失败: %w", err)
	}
	return n, nil
}
