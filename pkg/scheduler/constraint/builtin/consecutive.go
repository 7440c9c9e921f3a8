package builtin

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// MaxConsecutiveWorkConstraint 最大连续工作天数约束
// OFF 与 C 均打断连续段。
type MaxConsecutiveWorkConstraint struct {
	*BaseConstraint
	maxDays int
}

// NewMaxConsecutiveWorkConstraint 创建最大连续工作约束
func NewMaxConsecutiveWorkConstraint(maxDays int) *MaxConsecutiveWorkConstraint {
	return &MaxConsecutiveWorkConstraint{
		BaseConstraint: NewBaseConstraint(
			"最大连续工作天数",
			constraint.TypeMaxConsecutiveWork,
			constraint.CategoryHard,
			constraint.BlockConsecutive,
		),
		maxDays: maxDays,
	}
}

// Check 增量检查：包含刚赋值单元格的已赋值连续段不得超限
func (c *MaxConsecutiveWorkConstraint) Check(ctx *constraint.Context, agent, day int) bool {
	return ctx.RunLengthAround(agent, day) <= c.maxDays
}

// Evaluate 完整审计所有连续工作段
func (c *MaxConsecutiveWorkConstraint) Evaluate(ctx *constraint.Context) (bool, []constraint.Violation) {
	var violations []constraint.Violation

	for a := 0; a < ctx.NAgents; a++ {
		run := 0
		for d := 0; d <= ctx.NDays; d++ {
			if d < ctx.NDays && ctx.IsWorked(ctx.Grid[a][d]) {
				run++
				continue
			}
			if run > c.maxDays {
				violations = append(violations, constraint.Violation{
					ConstraintType: c.Type(),
					ConstraintName: c.Name(),
					Agent:          ctx.Problem.Agents[a].Code,
					Day:            ctx.Problem.Horizon.Label(d - 1),
					Message: fmt.Sprintf("管制员 %s 连续工作 %d 天，超过上限 %d 天",
						ctx.Problem.Agents[a].Code, run, c.maxDays),
				})
			}
			run = 0
		}
	}

	return len(violations) == 0, violations
}
