package builtin

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// MinRestConstraint 相邻两次执勤间最小休息时间约束
// 休息间隔 = (后班开始的绝对小时) − (前班结束的绝对小时)。
type MinRestConstraint struct {
	*BaseConstraint
	minHours float64
}

// NewMinRestConstraint 创建最小休息约束
func NewMinRestConstraint(minHours float64) *MinRestConstraint {
	return &MinRestConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次间最小休息",
			constraint.TypeMinRest,
			constraint.CategoryHard,
			constraint.BlockRest,
		),
		minHours: minHours,
	}
}

// Check 增量检查：刚赋值的执勤与前后最近的已赋值执勤核对间隔
func (c *MinRestConstraint) Check(ctx *constraint.Context, agent, day int) bool {
	if !ctx.IsWorked(ctx.Grid[agent][day]) {
		return true
	}
	if gap, ok := ctx.RestGapBefore(agent, day); ok && gap < c.minHours {
		return false
	}
	if gap, ok := ctx.RestGapAfter(agent, day); ok && gap < c.minHours {
		return false
	}
	return true
}

// Evaluate 完整审计所有相邻执勤对
func (c *MinRestConstraint) Evaluate(ctx *constraint.Context) (bool, []constraint.Violation) {
	var violations []constraint.Violation

	for a := 0; a < ctx.NAgents; a++ {
		prev := -1
		for d := 0; d < ctx.NDays; d++ {
			code := ctx.Grid[a][d]
			if !ctx.IsWorked(code) {
				continue
			}
			if prev >= 0 {
				gap := float64(d-prev)*24 - ctx.Ends[ctx.Grid[a][prev]] + ctx.Starts[code]
				if gap < c.minHours {
					violations = append(violations, constraint.Violation{
						ConstraintType: c.Type(),
						ConstraintName: c.Name(),
						Agent:          ctx.Problem.Agents[a].Code,
						Day:            ctx.Problem.Horizon.Label(d),
						Message: fmt.Sprintf("管制员 %s 执勤间隔仅 %.1f 小时，少于要求的 %.1f 小时",
							ctx.Problem.Agents[a].Code, gap, c.minHours),
					})
				}
			}
			prev = d
		}
	}

	return len(violations) == 0, violations
}
