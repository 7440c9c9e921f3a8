// Package optimizer 提供保持可行性的局部改进
package optimizer

import (
	"context"
	"math/rand"
	"time"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
	"github.com/tourplan/tourplan/pkg/scheduler/solver"
)

// 无改进移动连续达到该数即提前收敛
const plateauThreshold = 200

// Improver 局部改进器
// 在回溯搜索的可行解上做爬山：只接受既保持全部硬约束
// 又提升目标函数的移动。同一种子下移动序列完全确定。
type Improver struct {
	constraints []constraint.Constraint
	scorer      *solver.Scorer
	rng         *rand.Rand
}

// NewImprover 创建局部改进器
func NewImprover(manager *constraint.Manager, scorer *solver.Scorer, seed int64) *Improver {
	return &Improver{
		constraints: manager.Snapshot(),
		scorer:      scorer,
		rng:         rand.New(rand.NewSource(seed ^ 0x5ee4)),
	}
}

// Improve 在截止时间前改进矩阵，返回最终得分
// 过程中矩阵始终可行；被拒绝的移动立即回滚。
func (o *Improver) Improve(goCtx context.Context, ctx *constraint.Context, deadline time.Time) float64 {
	best := o.scorer.Score(ctx)
	plateau := 0

	for plateau < plateauThreshold {
		if goCtx.Err() != nil || time.Now().After(deadline) {
			break
		}

		var gain float64
		var ok bool
		if o.rng.Intn(2) == 0 {
			gain, ok = o.tryReassign(ctx, best)
		} else {
			gain, ok = o.trySwap(ctx, best)
		}
		if ok {
			best += gain
			plateau = 0
		} else {
			plateau++
		}
	}

	return best
}

// tryReassign 随机挑一个单元格换一个域内取值
func (o *Improver) tryReassign(ctx *constraint.Context, current float64) (float64, bool) {
	agent := o.rng.Intn(ctx.NAgents)
	day := o.rng.Intn(ctx.NDays)
	domain := ctx.Domains[agent][day]
	if len(domain) < 2 {
		return 0, false
	}

	old := ctx.Grid[agent][day]
	candidate := domain[o.rng.Intn(len(domain))]
	if candidate == old {
		return 0, false
	}

	ctx.Unassign(agent, day)
	ctx.Assign(agent, day, candidate)
	if o.feasibleAt(ctx, agent, day) {
		if score := o.scorer.Score(ctx); score > current {
			return score - current, true
		}
	}
	ctx.Unassign(agent, day)
	ctx.Assign(agent, day, old)
	return 0, false
}

// trySwap 随机挑同一天的两名管制员互换代码
func (o *Improver) trySwap(ctx *constraint.Context, current float64) (float64, bool) {
	if ctx.NAgents < 2 {
		return 0, false
	}
	day := o.rng.Intn(ctx.NDays)
	a1 := o.rng.Intn(ctx.NAgents)
	a2 := o.rng.Intn(ctx.NAgents)
	if a1 == a2 {
		return 0, false
	}

	c1, c2 := ctx.Grid[a1][day], ctx.Grid[a2][day]
	if c1 == c2 || !inDomain(ctx.Domains[a1][day], c2) || !inDomain(ctx.Domains[a2][day], c1) {
		return 0, false
	}

	ctx.Unassign(a1, day)
	ctx.Unassign(a2, day)
	ctx.Assign(a1, day, c2)
	ctx.Assign(a2, day, c1)
	if o.feasibleAt(ctx, a1, day) && o.feasibleAt(ctx, a2, day) {
		if score := o.scorer.Score(ctx); score > current {
			return score - current, true
		}
	}
	ctx.Unassign(a1, day)
	ctx.Unassign(a2, day)
	ctx.Assign(a1, day, c1)
	ctx.Assign(a2, day, c2)
	return 0, false
}

// feasibleAt 校验改动后的单元格仍满足全部硬约束
// 矩阵已填满，增量检查在此等价于对受影响范围的完整检查。
func (o *Improver) feasibleAt(ctx *constraint.Context, agent, day int) bool {
	return constraint.CheckAssignment(o.constraints, ctx, agent, day) == ""
}

func inDomain(domain []int8, code int8) bool {
	for _, v := range domain {
		if v == code {
			return true
		}
	}
	return false
}
