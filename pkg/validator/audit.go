package validator

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
)

// AuditPlanning 独立复核求解结果
// 不复用求解器的任何增量缓存，直接依据领域模型逐条重算硬性规则。
// 复核失败意味着求解器自身出了问题：返回 SOLVER_FAULT，
// 调用方不得将其降级为普通不可行。
func AuditPlanning(p *model.Problem, planning *model.Planning) *errors.AppError {
	if planning == nil {
		return errors.SolverFault("求解器声称成功但未返回排班")
	}

	nAgents := len(p.Agents)
	nDays := p.Horizon.Len()
	if len(planning.AgentCodes) != nAgents || len(planning.DayLabels) != nDays {
		return errors.SolverFault(fmt.Sprintf("排班矩阵维度 %d×%d 与问题 %d×%d 不符",
			len(planning.AgentCodes), len(planning.DayLabels), nAgents, nDays))
	}
	if !planning.Complete() {
		return errors.SolverFault("排班矩阵存在未赋值单元格")
	}

	for a := range p.Agents {
		for d := 0; d < nDays; d++ {
			code := planning.Get(a, d)
			if code != model.CodeOff && code != model.CodeLeave {
				if _, ok := p.ShiftByCode[code]; !ok {
					return errors.SolverFault(fmt.Sprintf("排班包含未声明的代码 %q", code))
				}
			}
		}
	}

	if fault := auditDesiderata(p, planning); fault != nil {
		return fault
	}
	if fault := auditBureau(p, planning); fault != nil {
		return fault
	}
	if fault := auditRest(p, planning); fault != nil {
		return fault
	}
	if fault := auditConsecutive(p, planning); fault != nil {
		return fault
	}
	if fault := auditHours(p, planning); fault != nil {
		return fault
	}
	if fault := auditRestPair(p, planning); fault != nil {
		return fault
	}
	if fault := auditParity(p, planning); fault != nil {
		return fault
	}
	return auditCoverage(p, planning)
}

// worked 判断代码是否计为执勤
func worked(code string) bool {
	return code != model.CodeOff && code != model.CodeLeave
}

// auditDesiderata 复核所有硬意愿
func auditDesiderata(p *model.Problem, planning *model.Planning) *errors.AppError {
	for _, des := range p.Desiderata {
		if des.Priority != model.DesideratumHard {
			continue
		}
		a := p.AgentIndex(des.Agent)
		if a < 0 || des.Day < 0 || des.Day >= p.Horizon.Len() {
			continue
		}
		got := planning.Get(a, des.Day)
		allowed := false
		for _, code := range des.Codes {
			if got == code {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.SolverFault(fmt.Sprintf("管制员 %s 第 %s 日的硬意愿被违反: 得到 %q",
				des.Agent, p.Horizon.Label(des.Day), got))
		}
	}
	return nil
}

// auditBureau 复核办公室专职管制员
// 默认只许 OFF，硬意愿可按天重新放开其他代码。
func auditBureau(p *model.Problem, planning *model.Planning) *errors.AppError {
	for a, agent := range p.Agents {
		if !agent.Bureau {
			continue
		}
		reopened := make(map[int]bool)
		for _, des := range p.Desiderata {
			if des.Agent == agent.Code && des.Priority == model.DesideratumHard {
				reopened[des.Day] = true
			}
		}
		for d := 0; d < p.Horizon.Len(); d++ {
			if code := planning.Get(a, d); code != model.CodeOff && !reopened[d] {
				return errors.SolverFault(fmt.Sprintf("办公室管制员 %s 第 %s 日被赋 %q",
					agent.Code, p.Horizon.Label(d), code))
			}
		}
	}
	return nil
}

// auditRest 复核相邻执勤间最小休息
func auditRest(p *model.Problem, planning *model.Planning) *errors.AppError {
	if p.Rules.MinRestHours <= 0 {
		return nil
	}
	for a, agent := range p.Agents {
		prev := -1
		for d := 0; d < p.Horizon.Len(); d++ {
			code := planning.Get(a, d)
			if !worked(code) {
				continue
			}
			if prev >= 0 {
				gap := float64(d-prev)*24 -
					p.ShiftByCode[planning.Get(a, prev)].End +
					p.ShiftByCode[code].Start
				if gap < p.Rules.MinRestHours {
					return errors.SolverFault(fmt.Sprintf("管制员 %s 执勤间隔 %.1f 小时低于下限 %.1f",
						agent.Code, gap, p.Rules.MinRestHours))
				}
			}
			prev = d
		}
	}
	return nil
}

// auditConsecutive 复核最大连续工作天数
func auditConsecutive(p *model.Problem, planning *model.Planning) *errors.AppError {
	if p.Rules.MaxConsecutiveShifts <= 0 {
		return nil
	}
	for a, agent := range p.Agents {
		run := 0
		for d := 0; d < p.Horizon.Len(); d++ {
			if worked(planning.Get(a, d)) {
				run++
				if run > p.Rules.MaxConsecutiveShifts {
					return errors.SolverFault(fmt.Sprintf("管制员 %s 连续工作超过 %d 天",
						agent.Code, p.Rules.MaxConsecutiveShifts))
				}
			} else {
				run = 0
			}
		}
	}
	return nil
}

// auditHours 复核日历周与滑动 7 天工时上限
func auditHours(p *model.Problem, planning *model.Planning) *errors.AppError {
	nDays := p.Horizon.Len()
	hours := func(a, d int) float64 {
		code := planning.Get(a, d)
		if !worked(code) {
			return 0
		}
		return p.ShiftByCode[code].Duration()
	}

	if p.Rules.MaxHoursWeekCalendar > 0 {
		for a, agent := range p.Agents {
			weekSum := make([]float64, p.Horizon.CalWeekCount())
			for d := 0; d < nDays; d++ {
				weekSum[p.Horizon.Days[d].CalWeek] += hours(a, d)
			}
			for w, sum := range weekSum {
				if sum > p.Rules.MaxHoursWeekCalendar {
					return errors.SolverFault(fmt.Sprintf("管制员 %s 第 %d 个日历周工时 %.1f 超过上限 %.1f",
						agent.Code, w+1, sum, p.Rules.MaxHoursWeekCalendar))
				}
			}
		}
	}

	if p.Rules.MaxHours7Rolling > 0 {
		for a, agent := range p.Agents {
			for s := 0; s < nDays; s++ {
				sum := 0.0
				for d := s; d < s+7 && d < nDays; d++ {
					sum += hours(a, d)
				}
				if sum > p.Rules.MaxHours7Rolling {
					return errors.SolverFault(fmt.Sprintf("管制员 %s 连续 7 天工时 %.1f 超过上限 %.1f",
						agent.Code, sum, p.Rules.MaxHours7Rolling))
				}
			}
		}
	}
	return nil
}

// auditRestPair 复核每个完整 7 天窗口内的相邻休息日对
func auditRestPair(p *model.Problem, planning *model.Planning) *errors.AppError {
	if !p.Rules.Require2ConsecutiveRestDays {
		return nil
	}
	nDays := p.Horizon.Len()
	for a, agent := range p.Agents {
		for s := 0; s+6 < nDays; s++ {
			found := false
			for d := s; d < s+6; d++ {
				if !worked(planning.Get(a, d)) && !worked(planning.Get(a, d+1)) {
					found = true
					break
				}
			}
			if !found {
				return errors.SolverFault(fmt.Sprintf("管制员 %s 自第 %s 日起的 7 天窗口缺少相邻休息日对",
					agent.Code, p.Horizon.Label(s)))
			}
		}
	}
	return nil
}

// auditParity 复核严格奇偶
func auditParity(p *model.Problem, planning *model.Planning) *errors.AppError {
	for a, agent := range p.Agents {
		if !agent.StrictParity {
			continue
		}
		count := 0
		for d := 0; d < p.Horizon.Len(); d++ {
			if worked(planning.Get(a, d)) {
				count++
			}
		}
		if count%2 != 0 {
			return errors.SolverFault(fmt.Sprintf("管制员 %s 工作日数 %d 为奇数", agent.Code, count))
		}
	}
	return nil
}

// auditCoverage 复核每日必备班次覆盖
func auditCoverage(p *model.Problem, planning *model.Planning) *errors.AppError {
	for d := 0; d < p.Horizon.Len(); d++ {
		for _, shift := range p.Shifts {
			if p.Coverage.Requirement(d, shift.Code) != model.RequirementMandatory {
				continue
			}
			covered := false
			for a := range p.Agents {
				if planning.Get(a, d) == shift.Code {
					covered = true
					break
				}
			}
			if !covered {
				return errors.SolverFault(fmt.Sprintf("第 %s 日必备班次 %s 无人执勤",
					p.Horizon.Label(d), shift.Code))
			}
		}
	}
	return nil
}
