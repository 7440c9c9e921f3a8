package builtin

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// CalendarWeekHoursConstraint 日历周（周一至周日）工时上限约束
// C 不计入任何工时上限。
type CalendarWeekHoursConstraint struct {
	*BaseConstraint
	maxHours float64
}

// NewCalendarWeekHoursConstraint 创建日历周工时约束
func NewCalendarWeekHoursConstraint(maxHours float64) *CalendarWeekHoursConstraint {
	return &CalendarWeekHoursConstraint{
		BaseConstraint: NewBaseConstraint(
			"日历周工时上限",
			constraint.TypeCalendarWeekHours,
			constraint.CategoryHard,
			constraint.BlockHourCap,
		),
		maxHours: maxHours,
	}
}

// Check 增量检查：依赖上下文按周维护的工时缓存
func (c *CalendarWeekHoursConstraint) Check(ctx *constraint.Context, agent, day int) bool {
	return ctx.CalHours[agent][ctx.CalWeekOf[day]] <= c.maxHours
}

// Evaluate 完整审计每个日历周
func (c *CalendarWeekHoursConstraint) Evaluate(ctx *constraint.Context) (bool, []constraint.Violation) {
	var violations []constraint.Violation

	for a := 0; a < ctx.NAgents; a++ {
		for w := 0; w < ctx.NCalWeeks; w++ {
			if ctx.CalHours[a][w] > c.maxHours {
				violations = append(violations, constraint.Violation{
					ConstraintType: c.Type(),
					ConstraintName: c.Name(),
					Agent:          ctx.Problem.Agents[a].Code,
					Message: fmt.Sprintf("管制员 %s 第 %d 个日历周工时 %.1f 小时，超过上限 %.1f 小时",
						ctx.Problem.Agents[a].Code, w+1, ctx.CalHours[a][w], c.maxHours),
				})
			}
		}
	}

	return len(violations) == 0, violations
}

// RollingWeekHoursConstraint 任意连续 7 天工时上限约束
type RollingWeekHoursConstraint struct {
	*BaseConstraint
	maxHours float64
}

// NewRollingWeekHoursConstraint 创建滑动 7 天工时约束
func NewRollingWeekHoursConstraint(maxHours float64) *RollingWeekHoursConstraint {
	return &RollingWeekHoursConstraint{
		BaseConstraint: NewBaseConstraint(
			"滑动7天工时上限",
			constraint.TypeRollingWeekHours,
			constraint.CategoryHard,
			constraint.BlockHourCap,
		),
		maxHours: maxHours,
	}
}

// Check 增量检查：覆盖刚赋值日的每个 7 天窗口
func (c *RollingWeekHoursConstraint) Check(ctx *constraint.Context, agent, day int) bool {
	lo := day - 6
	if lo < 0 {
		lo = 0
	}
	for s := lo; s <= day; s++ {
		if ctx.RollingHours(agent, s) > c.maxHours {
			return false
		}
	}
	return true
}

// Evaluate 完整审计所有 7 天窗口
func (c *RollingWeekHoursConstraint) Evaluate(ctx *constraint.Context) (bool, []constraint.Violation) {
	var violations []constraint.Violation

	for a := 0; a < ctx.NAgents; a++ {
		for s := 0; s < ctx.NDays; s++ {
			sum := ctx.RollingHours(a, s)
			if sum > c.maxHours {
				violations = append(violations, constraint.Violation{
					ConstraintType: c.Type(),
					ConstraintName: c.Name(),
					Agent:          ctx.Problem.Agents[a].Code,
					Day:            ctx.Problem.Horizon.Label(s),
					Message: fmt.Sprintf("管制员 %s 自第 %s 日起的 7 天工时 %.1f 小时，超过上限 %.1f 小时",
						ctx.Problem.Agents[a].Code, ctx.Problem.Horizon.Label(s), sum, c.maxHours),
				})
			}
		}
	}

	return len(violations) == 0, violations
}
