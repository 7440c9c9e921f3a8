package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// frame 搜索栈帧：一个单元格及其待尝试的取值序列
type frame struct {
	agent  int
	day    int
	values []int8
	next   int
}

// Engine 回溯搜索引擎
// 显式栈实现，每次迭代检查时间预算与取消信号，保证响应及时。
// 同一种子下搜索完全确定。
type Engine struct {
	ctx         *constraint.Context
	constraints []constraint.Constraint
	blockOf     map[constraint.Type]constraint.BlockClass
	scorer      *Scorer
	rng         *rand.Rand
	seed        int64
	worker      int

	maxBacktracks int64

	hasBest   bool
	bestGrid  [][]int8
	bestScore float64

	stats Stats
}

// NewEngine 创建搜索引擎
// worker 0 使用规范取值顺序；其余工作实例在同档取值间注入
// 种子决定的扰动以分散搜索。
func NewEngine(ctx *constraint.Context, manager *constraint.Manager, scorer *Scorer, seed int64, worker int) *Engine {
	constraints := manager.Snapshot()
	blockOf := make(map[constraint.Type]constraint.BlockClass, len(constraints))
	for _, c := range constraints {
		blockOf[c.Type()] = c.Block()
	}
	return &Engine{
		ctx:           ctx,
		constraints:   constraints,
		blockOf:       blockOf,
		scorer:        scorer,
		rng:           rand.New(rand.NewSource(seed + int64(worker)*1e9)),
		seed:          seed,
		worker:        worker,
		maxBacktracks: ctx.Problem.Rules.MaxBacktracks,
	}
}

// Solve 在截止时间前搜索最优排班
// 穷尽搜索空间返回最优解或不可行结论；预算耗尽返回已知最好解。
func (e *Engine) Solve(goCtx context.Context, deadline time.Time) *Solution {
	start := time.Now()
	e.stats.Seed = e.seed
	e.stats.Worker = e.worker
	e.stats.Blocks = make(map[constraint.BlockClass]int64)

	stack := make([]frame, 0, e.ctx.NAgents*e.ctx.NDays)
	exhausted := false
	cancelled := false
	budgetOut := false

	for {
		// 每次迭代都检查预算：时间、取消、回溯上限
		if goCtx.Err() != nil {
			cancelled = true
			break
		}
		if time.Now().After(deadline) {
			budgetOut = true
			break
		}
		if e.maxBacktracks > 0 && e.stats.Backtracks >= e.maxBacktracks {
			budgetOut = true
			break
		}

		if e.ctx.Complete() {
			e.recordIfBetter()
			if !e.advance(&stack) {
				exhausted = true
				break
			}
			continue
		}

		// 分支定界：乐观上界不优于已知最好解则剪枝
		if e.hasBest && e.scorer.Bound(e.ctx) <= e.bestScore {
			if !e.advance(&stack) {
				exhausted = true
				break
			}
			continue
		}

		agent, day := e.selectCell()
		stack = append(stack, frame{agent: agent, day: day, values: e.orderValues(agent, day)})
		if !e.advance(&stack) {
			exhausted = true
			break
		}
	}

	e.stats.Elapsed = time.Since(start)

	sol := &Solution{Score: e.bestScore, Stats: e.stats}
	if e.hasBest {
		e.restoreBest()
		sol.Planning = e.ctx.ToPlanning()
	}
	switch {
	case cancelled:
		sol.Status = StatusCancelled
	case exhausted && e.hasBest:
		sol.Status = StatusOptimal
	case exhausted:
		sol.Status = StatusInfeasible
	case budgetOut && e.hasBest:
		sol.Status = StatusTimeLimit
	default:
		sol.Status = StatusBudgetNoSolution
	}
	return sol
}

// advance 推进栈顶帧到下一个可行取值
// 栈顶取值穷尽则弹栈回溯；返回 false 表示整个搜索空间已穷尽。
func (e *Engine) advance(stack *[]frame) bool {
	for len(*stack) > 0 {
		top := &(*stack)[len(*stack)-1]
		if e.ctx.Grid[top.agent][top.day] != constraint.Unassigned {
			e.ctx.Unassign(top.agent, top.day)
		}
		for top.next < len(top.values) {
			v := top.values[top.next]
			top.next++
			e.stats.Nodes++
			e.ctx.Assign(top.agent, top.day, v)
			if t := constraint.CheckAssignment(e.constraints, e.ctx, top.agent, top.day); t != "" {
				e.stats.Blocks[e.blockOf[t]]++
				e.ctx.Unassign(top.agent, top.day)
				continue
			}
			return true
		}
		*stack = (*stack)[:len(*stack)-1]
		e.stats.Backtracks++
	}
	return false
}

// selectCell 最小剩余值启发：选择域最小的未赋值单元格
// 并列时按 (日, 管制员) 下标决胜，保证确定性。
func (e *Engine) selectCell() (int, int) {
	bestAgent, bestDay, bestSize := -1, -1, int(^uint(0)>>1)
	for d := 0; d < e.ctx.NDays; d++ {
		if e.ctx.ColumnOpen[d] == 0 {
			continue
		}
		for a := 0; a < e.ctx.NAgents; a++ {
			if e.ctx.Grid[a][d] != constraint.Unassigned {
				continue
			}
			size := len(e.ctx.Domains[a][d])
			if size < bestSize {
				bestAgent, bestDay, bestSize = a, d, size
			}
		}
	}
	return bestAgent, bestDay
}

// orderValues 生成单元格取值的尝试顺序
// 优先级：补足当天必备覆盖 > 满足软意愿 > 周期接续 > 贴近目标
// 工作量 > 可选覆盖 > OFF。同档按代码下标升序；非规范工作实例
// 在同档内注入种子扰动。
func (e *Engine) orderValues(agent, day int) []int8 {
	domain := e.ctx.Domains[agent][day]
	type rankedValue struct {
		value int8
		rank  int
	}
	ranked := make([]rankedValue, len(domain))

	for i, v := range domain {
		rank := 0
		if e.ctx.IsWorked(v) {
			if e.ctx.CovCount[day][v] == 0 && e.isMandatory(day, v) {
				rank += 3000
			} else if e.ctx.CovCount[day][v] == 0 {
				rank += 500
			}
		}
		if mask := e.ctx.SoftWant[agent][day]; mask != 0 && mask&(1<<uint(v)) != 0 {
			rank += 2000
		}
		rank += e.cycleRank(agent, day, v)
		if e.ctx.IsWorked(v) {
			if e.ctx.CovCount[day][v] > 0 {
				// 超额覆盖，最后才试
				rank -= 300
			} else if e.ctx.WorkedCount[agent] < e.ctx.Targets[agent] {
				rank += 200
			}
		} else if e.ctx.WorkedCount[agent] >= e.ctx.Targets[agent] {
			rank += 200
		}
		if v == constraint.OffIdx {
			rank += 100
		}
		if e.worker > 0 {
			rank += e.rng.Intn(64)
		}
		ranked[i] = rankedValue{value: v, rank: rank}
	}

	// 插入排序：域很小，且需要稳定的同档决胜
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0; j-- {
			if ranked[j].rank > ranked[j-1].rank ||
				(ranked[j].rank == ranked[j-1].rank && ranked[j].value < ranked[j-1].value) {
				ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
			} else {
				break
			}
		}
	}

	out := make([]int8, len(ranked))
	for i, rv := range ranked {
		out[i] = rv.value
	}
	return out
}

func (e *Engine) isMandatory(day int, code int8) bool {
	for _, c := range e.ctx.Mandatory[day] {
		if c == code {
			return true
		}
	}
	return false
}

// cycleRank 计算取值对前后两天周期接续的奖励档位
func (e *Engine) cycleRank(agent, day int, v int8) int {
	rank := 0
	if day > 0 {
		if prev := e.ctx.Grid[agent][day-1]; prev != constraint.Unassigned {
			if e.ctx.CycleGold[agent][prev] == v {
				rank += 800
			}
			if e.ctx.CycleSilv[agent][prev] == v {
				rank += 300
			}
		}
	}
	if day < e.ctx.NDays-1 {
		if next := e.ctx.Grid[agent][day+1]; next != constraint.Unassigned {
			if e.ctx.CycleGold[agent][v] == next {
				rank += 800
			}
			if e.ctx.CycleSilv[agent][v] == next {
				rank += 300
			}
		}
	}
	return rank
}

// recordIfBetter 记录当前填满矩阵（若优于已知最好解）
func (e *Engine) recordIfBetter() {
	score := e.scorer.Score(e.ctx)
	if e.hasBest && score <= e.bestScore {
		return
	}
	if e.bestGrid == nil {
		e.bestGrid = make([][]int8, e.ctx.NAgents)
		for a := range e.bestGrid {
			e.bestGrid[a] = make([]int8, e.ctx.NDays)
		}
	}
	for a := 0; a < e.ctx.NAgents; a++ {
		copy(e.bestGrid[a], e.ctx.Grid[a])
	}
	e.hasBest = true
	e.bestScore = score
}

// restoreBest 将最好解写回上下文矩阵
func (e *Engine) restoreBest() {
	for a := 0; a < e.ctx.NAgents; a++ {
		for d := 0; d < e.ctx.NDays; d++ {
			if e.ctx.Grid[a][d] != constraint.Unassigned {
				e.ctx.Unassign(a, d)
			}
		}
	}
	for a := 0; a < e.ctx.NAgents; a++ {
		for d := 0; d < e.ctx.NDays; d++ {
			e.ctx.Assign(a, d, e.bestGrid[a][d])
		}
	}
}
