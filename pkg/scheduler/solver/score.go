// Package solver 提供基于回溯搜索的排班求解器
package solver

import (
	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// 目标函数权重
// 软意愿远重于其余项：用户明确表达的意愿优先于自动公平性调节。
const (
	WeightSoftDesideratum = 100.0 // 每条软意愿满足 +，违反 −
	WeightOptionalFill    = 30.0  // 每个可选覆盖位被填 +
	WeightFairness        = 20.0  // 每单位目标工作日偏差 −
	WeightCycleGold       = 15.0  // 每对金级周期接续 +
	WeightCycleSilver     = 5.0   // 每对银级周期接续 +
	WeightWeekendSpread   = 10.0  // 周末执勤数极差每单位 −
	WeightSurplusCoverage = 50.0  // 同一天同一班次超出 1 人的每人 −
)

// Scorer 目标函数评分器
// 编译时预计算各项的理论上限，供分支定界的乐观界使用。
type Scorer struct {
	totalSoft     int     // 软意愿单元格总数
	totalOptional int     // 可选覆盖位总数
	maxCyclePairs float64 // 周期接续奖励理论上限
	maxScore      float64
}

// NewScorer 创建评分器
func NewScorer(ctx *constraint.Context) *Scorer {
	s := &Scorer{}

	for a := 0; a < ctx.NAgents; a++ {
		for d := 0; d < ctx.NDays; d++ {
			if ctx.SoftWant[a][d] != 0 {
				s.totalSoft++
			}
		}
	}
	for d := 0; d < ctx.NDays; d++ {
		s.totalOptional += len(ctx.OptionalC[d])
	}
	for a := 0; a < ctx.NAgents; a++ {
		gold, silver := false, false
		for _, to := range ctx.CycleGold[a] {
			if to >= 0 {
				gold = true
			}
		}
		for _, to := range ctx.CycleSilv[a] {
			if to >= 0 {
				silver = true
			}
		}
		if gold {
			s.maxCyclePairs += float64(ctx.NDays-1) * WeightCycleGold
		}
		if silver {
			s.maxCyclePairs += float64(ctx.NDays-1) * WeightCycleSilver
		}
	}

	s.maxScore = float64(s.totalSoft)*WeightSoftDesideratum +
		float64(s.totalOptional)*WeightOptionalFill +
		s.maxCyclePairs
	return s
}

// MaxScore 返回目标函数理论上限
func (s *Scorer) MaxScore() float64 { return s.maxScore }

// Score 计算填满矩阵的目标函数值
func (s *Scorer) Score(ctx *constraint.Context) float64 {
	score := 0.0

	// 软意愿
	for a := 0; a < ctx.NAgents; a++ {
		for d := 0; d < ctx.NDays; d++ {
			mask := ctx.SoftWant[a][d]
			if mask == 0 {
				continue
			}
			if mask&(1<<uint(ctx.Grid[a][d])) != 0 {
				score += WeightSoftDesideratum
			} else {
				score -= WeightSoftDesideratum
			}
		}
	}

	// 可选覆盖
	for d := 0; d < ctx.NDays; d++ {
		for _, code := range ctx.OptionalC[d] {
			if ctx.CovCount[d][code] > 0 {
				score += WeightOptionalFill
			}
		}
	}

	// 超额覆盖：同一班次每天一人即满足需求，多余的人是浪费
	score -= surplusCoverage(ctx) * WeightSurplusCoverage

	// 公平性：工作日数对目标的偏差
	for a := 0; a < ctx.NAgents; a++ {
		dev := ctx.WorkedCount[a] - ctx.Targets[a]
		if dev < 0 {
			dev = -dev
		}
		score -= float64(dev) * WeightFairness
	}

	// 周期接续奖励
	score += s.cycleBonus(ctx)

	// 周末执勤数极差
	score -= s.weekendSpread(ctx) * WeightWeekendSpread

	return score
}

// Bound 计算局部赋值的乐观上界
// 宽松但可靠：已确定的损失从理论上限中扣除，未确定部分按最优计。
func (s *Scorer) Bound(ctx *constraint.Context) float64 {
	bound := s.maxScore

	for a := 0; a < ctx.NAgents; a++ {
		for d := 0; d < ctx.NDays; d++ {
			mask := ctx.SoftWant[a][d]
			if mask == 0 {
				continue
			}
			code := ctx.Grid[a][d]
			if code != constraint.Unassigned && mask&(1<<uint(code)) == 0 {
				// 违反已成事实：上限中的 + 变为 −
				bound -= 2 * WeightSoftDesideratum
			}
		}
		// 工作日数已超目标的部分无法回收
		if over := ctx.WorkedCount[a] - ctx.Targets[a]; over > 0 {
			bound -= float64(over) * WeightFairness
		}
	}

	// 已产生的超额覆盖同样无法回收
	bound -= surplusCoverage(ctx) * WeightSurplusCoverage

	return bound
}

// surplusCoverage 统计超出一人的班次覆盖总人次
func surplusCoverage(ctx *constraint.Context) float64 {
	var surplus float64
	for d := 0; d < ctx.NDays; d++ {
		for code := int8(2); code < int8(ctx.NCodes); code++ {
			if n := ctx.CovCount[d][code]; n > 1 {
				surplus += float64(n - 1)
			}
		}
	}
	return surplus
}

// cycleBonus 计算已满足的周期接续奖励
func (s *Scorer) cycleBonus(ctx *constraint.Context) float64 {
	bonus := 0.0
	for a := 0; a < ctx.NAgents; a++ {
		for d := 0; d < ctx.NDays-1; d++ {
			cur := ctx.Grid[a][d]
			next := ctx.Grid[a][d+1]
			if cur == constraint.Unassigned || next == constraint.Unassigned {
				continue
			}
			if ctx.CycleGold[a][cur] == next {
				bonus += WeightCycleGold
			}
			if ctx.CycleSilv[a][cur] == next {
				bonus += WeightCycleSilver
			}
		}
	}
	return bonus
}

// weekendSpread 计算非办公室管制员周末执勤数的极差
func (s *Scorer) weekendSpread(ctx *constraint.Context) float64 {
	min, max := -1, 0
	for a := 0; a < ctx.NAgents; a++ {
		if ctx.Problem.Agents[a].Bureau {
			continue
		}
		count := 0
		for d := 0; d < ctx.NDays; d++ {
			if ctx.Weekend[d] && ctx.IsWorked(ctx.Grid[a][d]) {
				count++
			}
		}
		if min < 0 || count < min {
			min = count
		}
		if count > max {
			max = count
		}
	}
	if min < 0 {
		return 0
	}
	return float64(max - min)
}
