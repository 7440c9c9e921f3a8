package builtin

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// StrictParityConstraint 严格奇偶约束
// 被标记的管制员在周期内的工作日总数必须为偶数。
type StrictParityConstraint struct {
	*BaseConstraint
	agents []bool // [agent] 是否受此约束
}

// NewStrictParityConstraint 创建严格奇偶约束
func NewStrictParityConstraint(ctx *constraint.Context) *StrictParityConstraint {
	agents := make([]bool, ctx.NAgents)
	for a, ag := range ctx.Problem.Agents {
		agents[a] = ag.StrictParity
	}
	return &StrictParityConstraint{
		BaseConstraint: NewBaseConstraint(
			"严格奇偶",
			constraint.TypeStrictParity,
			constraint.CategoryHard,
			constraint.BlockParity,
		),
		agents: agents,
	}
}

// Check 增量检查：该行填满时工作日数必须为偶数
// 行未填满时剩余单元格仍可调整奇偶，不做裁剪。
func (c *StrictParityConstraint) Check(ctx *constraint.Context, agent, day int) bool {
	if !c.agents[agent] {
		return true
	}
	if ctx.RowOpen[agent] > 0 {
		return true
	}
	return ctx.WorkedCount[agent]%2 == 0
}

// Evaluate 完整审计所有受约束的管制员
func (c *StrictParityConstraint) Evaluate(ctx *constraint.Context) (bool, []constraint.Violation) {
	var violations []constraint.Violation

	for a := 0; a < ctx.NAgents; a++ {
		if !c.agents[a] {
			continue
		}
		if ctx.WorkedCount[a]%2 != 0 {
			violations = append(violations, constraint.Violation{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				Agent:          ctx.Problem.Agents[a].Code,
				Message: fmt.Sprintf("管制员 %s 工作日数 %d 为奇数，违反严格奇偶要求",
					ctx.Problem.Agents[a].Code, ctx.WorkedCount[a]),
			})
		}
	}

	return len(violations) == 0, violations
}
