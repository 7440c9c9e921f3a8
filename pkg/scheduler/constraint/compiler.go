package constraint

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/model"
)

// Compile 将经验证的领域模型编译为求解上下文
// 编译阶段一次性完成所有弱类型到下标的翻译，搜索热路径只接触整型表。
// 返回的 Violation 列表记录编译后域为空的单元格：这属于普通不可行，
// 不是求解器故障。
func Compile(p *model.Problem) (*Context, []Violation) {
	nAgents := len(p.Agents)
	nDays := p.Horizon.Len()
	nCodes := 2 + len(p.Shifts)

	ctx := &Context{
		Problem:   p,
		NAgents:   nAgents,
		NDays:     nDays,
		NCodes:    nCodes,
		Codes:     make([]string, nCodes),
		Durations: make([]float64, nCodes),
		Starts:    make([]float64, nCodes),
		Ends:      make([]float64, nCodes),
		NCalWeeks: p.Horizon.CalWeekCount(),
	}

	// 代码表：保留下标在前，班次按代码升序接续
	ctx.Codes[OffIdx] = model.CodeOff
	ctx.Codes[LeaveIdx] = model.CodeLeave
	for i, s := range p.Shifts {
		idx := 2 + i
		ctx.Codes[idx] = s.Code
		ctx.Durations[idx] = s.Duration()
		ctx.Starts[idx] = s.Start
		ctx.Ends[idx] = s.End
	}

	// 日历表
	ctx.CalWeekOf = make([]int, nDays)
	ctx.Weekend = make([]bool, nDays)
	for d, day := range p.Horizon.Days {
		ctx.CalWeekOf[d] = day.CalWeek
		ctx.Weekend[d] = day.Weekend
	}

	// 覆盖表：所有班次默认 MANDATORY，optional 表按天降级
	ctx.Mandatory = make([][]int8, nDays)
	ctx.OptionalC = make([][]int8, nDays)
	for d := 0; d < nDays; d++ {
		for i := range p.Shifts {
			code := int8(2 + i)
			if p.Coverage.Requirement(d, ctx.Codes[code]) == model.RequirementMandatory {
				ctx.Mandatory[d] = append(ctx.Mandatory[d], code)
			} else {
				ctx.OptionalC[d] = append(ctx.OptionalC[d], code)
			}
		}
	}

	// 单元格域与软意愿掩码
	ctx.Domains = make([][][]int8, nAgents)
	ctx.SoftWant = make([][]uint64, nAgents)
	compileDomains(ctx, p)

	// 周期奖励表
	ctx.CycleGold = makeCycleTable(ctx, p, model.CycleGold)
	ctx.CycleSilv = makeCycleTable(ctx, p, model.CycleSilver)

	// 目标工作日数
	ctx.Targets = make([]int, nAgents)
	for a, agent := range p.Agents {
		ctx.Targets[a] = agent.TargetWorkedDays(nDays, p.LeaveDays(agent.Code))
	}

	// 可变状态初始化
	ctx.Grid = make([][]int8, nAgents)
	ctx.CalHours = make([][]float64, nAgents)
	for a := 0; a < nAgents; a++ {
		row := make([]int8, nDays)
		for d := range row {
			row[d] = Unassigned
		}
		ctx.Grid[a] = row
		ctx.CalHours[a] = make([]float64, ctx.NCalWeeks)
	}
	ctx.CovCount = make([][]int16, nDays)
	ctx.ColumnOpen = make([]int, nDays)
	for d := 0; d < nDays; d++ {
		ctx.CovCount[d] = make([]int16, nCodes)
		ctx.ColumnOpen[d] = nAgents
	}
	ctx.RowOpen = make([]int, nAgents)
	for a := range ctx.RowOpen {
		ctx.RowOpen[a] = nDays
	}
	ctx.WorkedCount = make([]int, nAgents)

	return ctx, findEmptyDomains(ctx)
}

// compileDomains 生成每个单元格的允许代码集合
// 普通管制员默认全部代码；办公室专职默认仅 OFF，意愿可重新放开。
// 硬意愿直接替换域，软意愿只写入掩码不收缩域。
func compileDomains(ctx *Context, p *model.Problem) {
	// C 只能经意愿进入域：求解器不自行安排休假
	full := make([]int8, 0, ctx.NCodes-1)
	full = append(full, OffIdx)
	for i := 2; i < ctx.NCodes; i++ {
		full = append(full, int8(i))
	}
	officeOnly := []int8{OffIdx}

	for a, agent := range p.Agents {
		ctx.Domains[a] = make([][]int8, ctx.NDays)
		ctx.SoftWant[a] = make([]uint64, ctx.NDays)
		base := full
		if agent.Bureau {
			base = officeOnly
		}
		for d := 0; d < ctx.NDays; d++ {
			ctx.Domains[a][d] = base
		}
	}

	// 同一单元格被多条硬意愿命中时取交集
	replaced := make([][]bool, ctx.NAgents)
	for a := range replaced {
		replaced[a] = make([]bool, ctx.NDays)
	}

	for _, des := range p.Desiderata {
		a := p.AgentIndex(des.Agent)
		if a < 0 || des.Day < 0 || des.Day >= ctx.NDays {
			continue
		}
		if des.Priority == model.DesideratumHard {
			domain := make([]int8, 0, len(des.Codes))
			for _, code := range des.Codes {
				idx := ctx.CodeIndex(code)
				if idx >= 0 {
					domain = append(domain, idx)
				}
			}
			sortInt8(domain)
			if replaced[a][des.Day] {
				domain = intersectInt8(ctx.Domains[a][des.Day], domain)
			}
			ctx.Domains[a][des.Day] = domain
			replaced[a][des.Day] = true
		} else {
			var mask uint64
			for _, code := range des.Codes {
				idx := ctx.CodeIndex(code)
				if idx >= 0 {
					mask |= 1 << uint(idx)
				}
			}
			ctx.SoftWant[a][des.Day] |= mask
		}
	}
}

// makeCycleTable 编译某优先级的周期接续表
func makeCycleTable(ctx *Context, p *model.Problem, prio model.CyclePriority) [][]int8 {
	table := make([][]int8, ctx.NAgents)
	for a, agent := range p.Agents {
		row := make([]int8, ctx.NCodes)
		for i := range row {
			row[i] = -1
		}
		for _, cy := range agent.Cycles {
			if cy.Priority != prio {
				continue
			}
			from := ctx.CodeIndex(cy.From)
			to := ctx.CodeIndex(cy.To)
			if from >= 0 && to >= 0 {
				row[from] = to
			}
		}
		table[a] = row
	}
	return table
}

// findEmptyDomains 收集编译后域为空的单元格
func findEmptyDomains(ctx *Context) []Violation {
	var out []Violation
	for a := 0; a < ctx.NAgents; a++ {
		for d := 0; d < ctx.NDays; d++ {
			if len(ctx.Domains[a][d]) == 0 {
				out = append(out, Violation{
					ConstraintType: TypeHardDesideratum,
					ConstraintName: "empty_domain",
					Agent:          ctx.Problem.Agents[a].Code,
					Day:            ctx.Problem.Horizon.Label(d),
					Message: fmt.Sprintf("管制员 %s 第 %s 日的硬意愿排除了所有代码",
						ctx.Problem.Agents[a].Code, ctx.Problem.Horizon.Label(d)),
				})
			}
		}
	}
	return out
}

func intersectInt8(a, b []int8) []int8 {
	var out []int8
	for _, v := range a {
		for _, w := range b {
			if v == w {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func sortInt8(s []int8) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
