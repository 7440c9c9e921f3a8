// Package scheduler 排班求解门面
// 串联编译、约束装配、并行搜索、局部改进与结果复核。
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
	"github.com/tourplan/tourplan/pkg/scheduler/constraint/builtin"
	"github.com/tourplan/tourplan/pkg/scheduler/optimizer"
	"github.com/tourplan/tourplan/pkg/scheduler/solver"
	"github.com/tourplan/tourplan/pkg/validator"
)

// Options 求解选项
type Options struct {
	Workers     int  `json:"workers"`      // 并行工作实例数，0 = 自动
	NoImprove   bool `json:"no_improve"`   // 跳过局部改进阶段
	ImproveLast time.Duration `json:"improve_last"` // 预算尾段留给局部改进的时长
}

// DefaultOptions 默认求解选项
func DefaultOptions() Options {
	return Options{
		Workers:     0,
		ImproveLast: 500 * time.Millisecond,
	}
}

// Scheduler 排班求解器
type Scheduler struct {
	opts Options
	log  *logger.SolverLogger
}

// New 创建排班求解器
func New(opts Options) *Scheduler {
	return &Scheduler{
		opts: opts,
		log:  logger.NewSolverLogger(),
	}
}

// Solve 求解排班问题
// 输入必须是经验证的领域模型。返回值约定：
//   - 找到排班：返回解与 nil 错误（预算耗尽的部分最优同样走此路径）
//   - 证明不可行：NO_FEASIBLE_SOLUTION，携带阻塞类别诊断
//   - 预算耗尽且无解：TIME_BUDGET_EXCEEDED
//   - 求解器内部异常：SOLVER_FAULT，绝不伪装成不可行
func (s *Scheduler) Solve(goCtx context.Context, problem *model.Problem) (*solver.Solution, error) {
	s.log.StartSolve(problem.RequestID, len(problem.Agents), problem.Horizon.Len(), problem.Seed)
	start := time.Now()

	ctx, emptyDomains := constraint.Compile(problem)
	if len(emptyDomains) > 0 {
		// 硬意愿互相冲突：普通不可行，不是故障
		first := emptyDomains[0]
		s.log.Infeasible(string(constraint.BlockHardDesideratum), 0, 0)
		return nil, errors.New(errors.CodeNoFeasibleSolution, "排班问题无可行解").
			WithField("block_class", string(constraint.BlockHardDesideratum)).
			WithField("seed", problem.Seed).
			WithDetails(first.Message)
	}

	manager := builtin.FromRules(ctx)
	scorer := solver.NewScorer(ctx)

	budget := time.Duration(problem.Rules.SolverTimeLimit) * time.Second
	deadline := start.Add(budget)
	if d, ok := goCtx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	searchDeadline := deadline
	if !s.opts.NoImprove && budget > 2*s.opts.ImproveLast {
		searchDeadline = deadline.Add(-s.opts.ImproveLast)
	}

	parallel := solver.NewParallelSolver(manager, scorer, s.opts.Workers)
	sol := parallel.Solve(goCtx, ctx, searchDeadline)

	switch sol.Status {
	case solver.StatusCancelled:
		return nil, errors.Wrap(goCtx.Err(), errors.CodeTimeout, "求解被取消")

	case solver.StatusInfeasible:
		block := sol.Stats.DominantBlock()
		s.log.Infeasible(string(block), sol.Stats.Nodes, sol.Stats.Backtracks)
		return nil, errors.New(errors.CodeNoFeasibleSolution, "排班问题无可行解").
			WithField("block_class", string(block)).
			WithField("nodes", sol.Stats.Nodes).
			WithField("backtracks", sol.Stats.Backtracks).
			WithField("seed", problem.Seed).
			WithDetails(fmt.Sprintf("搜索空间已穷尽，主要阻塞类别: %s", block))

	case solver.StatusBudgetNoSolution:
		s.log.BudgetExpired(time.Since(start), false)
		return nil, errors.New(errors.CodeTimeBudgetExceeded, "时间预算耗尽且未找到可行解").
			WithField("budget_seconds", problem.Rules.SolverTimeLimit).
			WithField("nodes", sol.Stats.Nodes).
			WithField("seed", problem.Seed)
	}

	s.log.FirstFeasible(sol.Stats.Worker, time.Since(start), sol.Score)

	// 局部改进：仅接受保持可行的移动
	if !s.opts.NoImprove && sol.Status != solver.StatusOptimal {
		ctx.LoadPlanning(sol.Planning)
		improver := optimizer.NewImprover(manager, scorer, problem.Seed)
		if improved := improver.Improve(goCtx, ctx, deadline); improved > sol.Score {
			s.log.Improved(sol.Stats.Worker, improved, sol.Stats.Nodes)
			sol.Score = improved
			sol.Planning = ctx.ToPlanning()
		}
	}

	// 独立复核：任何硬性规则违反都是求解器故障，绝不降级为不可行
	if auditErr := validator.AuditPlanning(problem, sol.Planning); auditErr != nil {
		return nil, auditErr
	}

	s.log.SolveComplete(problem.RequestID, time.Since(start), string(sol.Status), sol.Score)
	return sol, nil
}
