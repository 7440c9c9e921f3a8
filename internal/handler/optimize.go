package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tourplan/tourplan/internal/config"
	"github.com/tourplan/tourplan/internal/metrics"
	"github.com/tourplan/tourplan/internal/repository"
	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/scheduler"
	"github.com/tourplan/tourplan/pkg/scheduler/report"
	"github.com/tourplan/tourplan/pkg/validator"
)

// OptimizeHandler 排班求解处理器
type OptimizeHandler struct {
	cfg   *config.Config
	sched *scheduler.Scheduler
	cache repository.SolutionRepositoryInterface // 可为 nil，表示未启用缓存
}

// NewOptimizeHandler 创建排班求解处理器
func NewOptimizeHandler(cfg *config.Config, cache repository.SolutionRepositoryInterface) *OptimizeHandler {
	opts := scheduler.DefaultOptions()
	opts.Workers = cfg.Solver.Workers
	opts.NoImprove = !cfg.Solver.Improve
	return &OptimizeHandler{
		cfg:   cfg,
		sched: scheduler.New(opts),
		cache: cache,
	}
}

// Optimize 处理 POST /api/optimize
// 求解是纯函数，相同请求体直接命中缓存返回。
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "读取请求体失败"))
		return
	}

	requestID, _ := r.Context().Value("request_id").(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	hash := repository.HashRequest(body)
	if h.cache != nil {
		cached, cacheErr := h.cache.Get(r.Context(), hash)
		if cacheErr != nil {
			logger.WithError(cacheErr).Msg("查询求解缓存失败，降级为直接求解")
		}
		metrics.RecordCacheLookup(cached != nil)
		if cached != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(cached.Response)
			return
		}
	}

	var req validator.OptimizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	problem, verrs := validator.ValidateRequest(&req)
	if verrs != nil && verrs.HasErrors() {
		logger.Warn().
			Str("request_id", requestID).
			Int("error_count", len(verrs.Errors)).
			Msg("请求验证失败")
		respondJSON(w, http.StatusBadRequest, report.ValidationFailure(verrs))
		return
	}
	problem.RequestID = requestID

	// 时间预算受服务端上限约束
	if maxSec := int(h.cfg.Solver.MaxTimeLimit.Seconds()); maxSec > 0 && problem.Rules.SolverTimeLimit > maxSec {
		problem.Rules.SolverTimeLimit = maxSec
	}

	solveCtx, cancel := contextWithTimeout(r, h.cfg.API.Timeout)
	defer cancel()

	start := time.Now()
	sol, solveErr := h.sched.Solve(solveCtx, problem)
	if solveErr != nil {
		appErr := asAppError(solveErr)
		metrics.RecordSolve(string(appErr.Code), time.Since(start), 0, 0)
		if appErr.Code == errors.CodeNoFeasibleSolution {
			if block, ok := appErr.Fields["block_class"].(string); ok {
				metrics.RecordInfeasible(block)
			}
		}
		respondJSON(w, appErr.HTTPStatus, report.Failure(appErr))
		return
	}

	resp := report.Success(problem, sol)
	metrics.RecordSolve(string(sol.Status), time.Since(start), sol.Stats.Nodes, sol.Stats.Backtracks)
	metrics.SetSolutionQuality(sol.Score, resp.Diagnostics.SoftViolations)

	if h.cache != nil {
		if payload, marshalErr := json.Marshal(resp); marshalErr == nil {
			putErr := h.cache.Put(r.Context(), &repository.CachedSolution{
				RequestHash: hash,
				RequestID:   requestID,
				Response:    payload,
				Score:       sol.Score,
				Status:      string(sol.Status),
				ExpiresAt:   time.Now().Add(h.cfg.Cache.TTL),
			})
			if putErr != nil {
				logger.WithError(putErr).Msg("写入求解缓存失败")
			}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// asAppError 归一化为应用错误，未知错误一律视为内部故障
func asAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.Wrap(err, errors.CodeInternal, "求解失败")
}
