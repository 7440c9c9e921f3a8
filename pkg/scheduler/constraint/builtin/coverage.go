package builtin

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// MandatoryCoverageConstraint 每日必备班次覆盖约束
// 每个标记为必备的班次每天至少需要一名管制员执勤。
type MandatoryCoverageConstraint struct {
	*BaseConstraint
}

// NewMandatoryCoverageConstraint 创建必备覆盖约束
func NewMandatoryCoverageConstraint() *MandatoryCoverageConstraint {
	return &MandatoryCoverageConstraint{
		BaseConstraint: NewBaseConstraint(
			"每日必备覆盖",
			constraint.TypeMandatoryCoverage,
			constraint.CategoryHard,
			constraint.BlockCoverage,
		),
	}
}

// Check 增量检查：当天每个尚未覆盖的必备班次
// 必须仍有未赋值单元格的域包含该班次，否则此列已无法补救。
func (c *MandatoryCoverageConstraint) Check(ctx *constraint.Context, agent, day int) bool {
	for _, code := range ctx.Mandatory[day] {
		if ctx.CovCount[day][code] > 0 {
			continue
		}
		if ctx.ColumnOpen[day] == 0 {
			return false
		}
		if !columnCanCover(ctx, day, code) {
			return false
		}
	}
	return true
}

// columnCanCover 判断当天是否仍有未赋值单元格可执勤某班次
func columnCanCover(ctx *constraint.Context, day int, code int8) bool {
	for a := 0; a < ctx.NAgents; a++ {
		if ctx.Grid[a][day] != constraint.Unassigned {
			continue
		}
		for _, v := range ctx.Domains[a][day] {
			if v == code {
				return true
			}
		}
	}
	return false
}

// Evaluate 完整审计每天的必备覆盖
func (c *MandatoryCoverageConstraint) Evaluate(ctx *constraint.Context) (bool, []constraint.Violation) {
	var violations []constraint.Violation

	for d := 0; d < ctx.NDays; d++ {
		for _, code := range ctx.Mandatory[d] {
			if ctx.CovCount[d][code] > 0 {
				continue
			}
			violations = append(violations, constraint.Violation{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				Day:            ctx.Problem.Horizon.Label(d),
				Message: fmt.Sprintf("第 %s 日的必备班次 %s 无人执勤",
					ctx.Problem.Horizon.Label(d), ctx.Codes[code]),
			})
		}
	}

	return len(violations) == 0, violations
}
