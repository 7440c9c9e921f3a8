package solver

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// ParallelSolver 并行回溯求解器
// 各工作实例持有上下文的私有副本、共享编译产物，按不同种子
// 分散搜索。结果按 (得分, 工作实例下标) 决胜，保证同一请求
// 同一种子下输出完全可复现。
type ParallelSolver struct {
	workers int
	manager *constraint.Manager
	scorer  *Scorer
}

// NewParallelSolver 创建并行求解器
func NewParallelSolver(manager *constraint.Manager, scorer *Scorer, workers int) *ParallelSolver {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 4 {
			workers = 4
		}
	}
	return &ParallelSolver{
		workers: workers,
		manager: manager,
		scorer:  scorer,
	}
}

// Solve 并行搜索直至截止时间
// 任一实例证明最优（穷尽搜索空间）即取消其余实例。
func (p *ParallelSolver) Solve(goCtx context.Context, ctx *constraint.Context, deadline time.Time) *Solution {
	runCtx, cancel := context.WithCancel(goCtx)
	defer cancel()

	// 所有副本在启动任何工作实例之前取好：原型一旦被实例 0 写入，
	// 再 Clone 就会读到不一致的缓存
	contexts := make([]*constraint.Context, p.workers)
	contexts[0] = ctx
	for w := 1; w < p.workers; w++ {
		contexts[w] = ctx.Clone()
	}

	results := make([]*Solution, p.workers)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			engine := NewEngine(contexts[worker], p.manager, p.scorer, ctx.Problem.Seed, worker)
			sol := engine.Solve(runCtx, deadline)
			results[worker] = sol
			// 穷尽即为全局结论，叫停其余实例
			if sol.Status == StatusOptimal || sol.Status == StatusInfeasible {
				cancel()
			}
		}(w)
	}
	wg.Wait()

	return p.merge(results)
}

// merge 汇总各工作实例的结果
// 得分最高的可行解胜出，并列取下标最小的实例；统计量取各实例
// 之和，阻塞计数按类别合并。
func (p *ParallelSolver) merge(results []*Solution) *Solution {
	var best *Solution
	proved := false
	infeasibleProved := false

	total := Stats{Blocks: make(map[constraint.BlockClass]int64)}
	for _, sol := range results {
		if sol == nil {
			continue
		}
		total.Nodes += sol.Stats.Nodes
		total.Backtracks += sol.Stats.Backtracks
		if sol.Stats.Elapsed > total.Elapsed {
			total.Elapsed = sol.Stats.Elapsed
		}
		for class, count := range sol.Stats.Blocks {
			total.Blocks[class] += count
		}
		switch sol.Status {
		case StatusOptimal:
			proved = true
		case StatusInfeasible:
			infeasibleProved = true
		}
		if sol.Feasible() && (best == nil || sol.Score > best.Score) {
			best = sol
		}
	}
	total.Seed = results[0].Stats.Seed
	total.Worker = 0

	if best != nil {
		merged := &Solution{Planning: best.Planning, Score: best.Score, Stats: total}
		if proved {
			merged.Status = StatusOptimal
		} else {
			merged.Status = StatusTimeLimit
		}
		merged.Stats.Worker = best.Stats.Worker
		return merged
	}

	merged := &Solution{Stats: total}
	switch {
	case infeasibleProved:
		merged.Status = StatusInfeasible
	case results[0] != nil && results[0].Status == StatusCancelled:
		merged.Status = StatusCancelled
	default:
		merged.Status = StatusBudgetNoSolution
	}
	return merged
}
