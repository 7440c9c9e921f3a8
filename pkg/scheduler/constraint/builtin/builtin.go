package builtin

import (
	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// FromRules 按劳动合同规则装配约束管理器
// 规则值小于等于零视为该项未启用。
func FromRules(ctx *constraint.Context) *constraint.Manager {
	rules := ctx.Problem.Rules
	m := constraint.NewManager()

	m.Register(NewMandatoryCoverageConstraint())

	if rules.MinRestHours > 0 {
		m.Register(NewMinRestConstraint(rules.MinRestHours))
	}
	if rules.MaxConsecutiveShifts > 0 {
		m.Register(NewMaxConsecutiveWorkConstraint(rules.MaxConsecutiveShifts))
	}
	if rules.MaxHoursWeekCalendar > 0 {
		m.Register(NewCalendarWeekHoursConstraint(rules.MaxHoursWeekCalendar))
	}
	if rules.MaxHours7Rolling > 0 {
		m.Register(NewRollingWeekHoursConstraint(rules.MaxHours7Rolling))
	}
	if rules.Require2ConsecutiveRestDays {
		m.Register(NewConsecutiveRestPairConstraint())
	}
	m.Register(NewStrictParityConstraint(ctx))

	return m
}
