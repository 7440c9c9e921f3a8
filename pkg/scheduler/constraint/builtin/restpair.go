package builtin

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// ConsecutiveRestPairConstraint 每个 7 天滑动窗口内至少一对相邻休息日
// OFF 与 C 均视为休息日。只审视完整落在排班周期内的窗口。
type ConsecutiveRestPairConstraint struct {
	*BaseConstraint
}

// NewConsecutiveRestPairConstraint 创建相邻休息日对约束
func NewConsecutiveRestPairConstraint() *ConsecutiveRestPairConstraint {
	return &ConsecutiveRestPairConstraint{
		BaseConstraint: NewBaseConstraint(
			"相邻休息日对",
			constraint.TypeConsecutiveRestPair,
			constraint.CategoryHard,
			constraint.BlockRest,
		),
	}
}

// Check 增量检查：覆盖刚赋值日的每个窗口仍须存在一对
// 相邻的"已休息或仍可休息"单元格，否则该局部赋值不可延伸。
func (c *ConsecutiveRestPairConstraint) Check(ctx *constraint.Context, agent, day int) bool {
	if ctx.NDays < 7 {
		return true
	}
	lo := day - 6
	if lo < 0 {
		lo = 0
	}
	hi := day
	if hi > ctx.NDays-7 {
		hi = ctx.NDays - 7
	}
	for s := lo; s <= hi; s++ {
		if !c.windowOpen(ctx, agent, s) {
			return false
		}
	}
	return true
}

// windowOpen 判断 [s, s+6] 窗口内是否还能凑出一对相邻休息日
func (c *ConsecutiveRestPairConstraint) windowOpen(ctx *constraint.Context, agent, s int) bool {
	for d := s; d < s+6; d++ {
		if ctx.CanRest(agent, d) && ctx.CanRest(agent, d+1) {
			return true
		}
	}
	return false
}

// Evaluate 完整审计所有完整窗口
func (c *ConsecutiveRestPairConstraint) Evaluate(ctx *constraint.Context) (bool, []constraint.Violation) {
	var violations []constraint.Violation

	for a := 0; a < ctx.NAgents; a++ {
		for s := 0; s+6 < ctx.NDays; s++ {
			if c.windowHasPair(ctx, a, s) {
				continue
			}
			violations = append(violations, constraint.Violation{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				Agent:          ctx.Problem.Agents[a].Code,
				Day:            ctx.Problem.Horizon.Label(s),
				Message: fmt.Sprintf("管制员 %s 自第 %s 日起的 7 天窗口内没有相邻的两个休息日",
					ctx.Problem.Agents[a].Code, ctx.Problem.Horizon.Label(s)),
			})
		}
	}

	return len(violations) == 0, violations
}

func (c *ConsecutiveRestPairConstraint) windowHasPair(ctx *constraint.Context, agent, s int) bool {
	for d := s; d < s+6; d++ {
		c1 := ctx.Grid[agent][d]
		c2 := ctx.Grid[agent][d+1]
		if c1 != constraint.Unassigned && !ctx.IsWorked(c1) &&
			c2 != constraint.Unassigned && !ctx.IsWorked(c2) {
			return true
		}
	}
	return false
}
