package constraint

import (
	"github.com/tourplan/tourplan/pkg/model"
)

// Unassigned 未赋值单元格的标记
const Unassigned int8 = -1

// 保留代码的固定下标
const (
	OffIdx   int8 = 0
	LeaveIdx int8 = 1
)

// Context 排班上下文
// 编译产物（代码表、单元格域、覆盖表、周期奖励表）在所有搜索实例间
// 只读共享；排班矩阵与增量缓存为每个实例私有，通过 Clone 分裂。
type Context struct {
	Problem *model.Problem

	NAgents int
	NDays   int
	NCodes  int

	// 代码表：0=OFF, 1=C, 2.. 为班次（按代码升序）
	Codes     []string
	Durations []float64
	Starts    []float64
	Ends      []float64

	// 编译产物（只读共享）
	Domains   [][][]int8  // [agent][day] 允许代码，升序
	SoftWant  [][]uint64  // [agent][day] 软意愿代码位掩码，0 = 无
	CycleGold [][]int8    // [agent][fromCode] → toCode，-1 = 无
	CycleSilv [][]int8    // 同上，银级
	Mandatory [][]int8    // [day] 当天必须覆盖的代码
	OptionalC [][]int8    // [day] 当天可选覆盖的代码
	Targets   []int       // [agent] 目标工作日数
	CalWeekOf []int       // [day] 日历周序号
	Weekend   []bool      // [day]
	NCalWeeks int

	// 可变状态（实例私有）
	Grid        [][]int8    // [agent][day]，Unassigned 表示空
	CovCount    [][]int16   // [day][code] 当天已赋该代码的人数
	ColumnOpen  []int       // [day] 当天未赋值单元格数
	RowOpen     []int       // [agent] 该行未赋值单元格数
	WorkedCount []int       // [agent] 已赋值的工作日数
	CalHours    [][]float64 // [agent][calweek] 已赋值工时
	Filled      int         // 已赋值单元格总数
}

// CodeIndex 由代码反查下标，找不到返回 -1
func (c *Context) CodeIndex(code string) int8 {
	for i, v := range c.Codes {
		if v == code {
			return int8(i)
		}
	}
	return -1
}

// IsWorked 判断代码下标是否计为工作日
func (c *Context) IsWorked(code int8) bool {
	return code >= 0 && c.Durations[code] > 0
}

// Assign 赋值单元格并维护增量缓存
func (c *Context) Assign(agent, day int, code int8) {
	c.Grid[agent][day] = code
	c.CovCount[day][code]++
	c.ColumnOpen[day]--
	c.RowOpen[agent]--
	c.Filled++
	if c.IsWorked(code) {
		c.WorkedCount[agent]++
	}
	c.CalHours[agent][c.CalWeekOf[day]] += c.Durations[code]
}

// Unassign 撤销单元格赋值
func (c *Context) Unassign(agent, day int) {
	code := c.Grid[agent][day]
	if code == Unassigned {
		return
	}
	c.Grid[agent][day] = Unassigned
	c.CovCount[day][code]--
	c.ColumnOpen[day]++
	c.RowOpen[agent]++
	c.Filled--
	if c.IsWorked(code) {
		c.WorkedCount[agent]--
	}
	c.CalHours[agent][c.CalWeekOf[day]] -= c.Durations[code]
}

// Complete 判断矩阵是否已填满
func (c *Context) Complete() bool {
	return c.Filled == c.NAgents*c.NDays
}

// Clone 分裂出共享编译产物、私有可变状态的副本
func (c *Context) Clone() *Context {
	clone := *c
	clone.Grid = make([][]int8, c.NAgents)
	clone.CalHours = make([][]float64, c.NAgents)
	for a := 0; a < c.NAgents; a++ {
		clone.Grid[a] = append([]int8(nil), c.Grid[a]...)
		clone.CalHours[a] = append([]float64(nil), c.CalHours[a]...)
	}
	clone.CovCount = make([][]int16, c.NDays)
	for d := 0; d < c.NDays; d++ {
		clone.CovCount[d] = append([]int16(nil), c.CovCount[d]...)
	}
	clone.ColumnOpen = append([]int(nil), c.ColumnOpen...)
	clone.RowOpen = append([]int(nil), c.RowOpen...)
	clone.WorkedCount = append([]int(nil), c.WorkedCount...)
	return &clone
}

// ToPlanning 将已填满的矩阵导出为不可变排班结果
func (c *Context) ToPlanning() *model.Planning {
	p := model.NewPlanning(c.Problem.Agents, c.Problem.Horizon)
	for a := 0; a < c.NAgents; a++ {
		for d := 0; d < c.NDays; d++ {
			code := c.Grid[a][d]
			if code != Unassigned {
				p.Set(a, d, c.Codes[code])
			}
		}
	}
	return p
}

// LoadPlanning 将排班结果写回矩阵，重建所有增量缓存
func (c *Context) LoadPlanning(p *model.Planning) {
	for a := 0; a < c.NAgents; a++ {
		for d := 0; d < c.NDays; d++ {
			if c.Grid[a][d] != Unassigned {
				c.Unassign(a, d)
			}
		}
	}
	for a := 0; a < c.NAgents; a++ {
		for d := 0; d < c.NDays; d++ {
			if idx := c.CodeIndex(p.Get(a, d)); idx >= 0 {
				c.Assign(a, d, idx)
			}
		}
	}
}

// RestGapBefore 返回 (agent, day) 与其前一个已赋值工作日之间的休息小时数
// 中间若存在未赋值单元格则无法断言，返回 (0, false)。
func (c *Context) RestGapBefore(agent, day int) (float64, bool) {
	cur := c.Grid[agent][day]
	if !c.IsWorked(cur) {
		return 0, false
	}
	for p := day - 1; p >= 0; p-- {
		prev := c.Grid[agent][p]
		if prev == Unassigned {
			return 0, false
		}
		if c.IsWorked(prev) {
			gap := float64(day-p)*24 - c.Ends[prev] + c.Starts[cur]
			return gap, true
		}
	}
	return 0, false
}

// RestGapAfter 返回 (agent, day) 与其后一个已赋值工作日之间的休息小时数
func (c *Context) RestGapAfter(agent, day int) (float64, bool) {
	cur := c.Grid[agent][day]
	if !c.IsWorked(cur) {
		return 0, false
	}
	for n := day + 1; n < c.NDays; n++ {
		next := c.Grid[agent][n]
		if next == Unassigned {
			return 0, false
		}
		if c.IsWorked(next) {
			gap := float64(n-day)*24 - c.Ends[cur] + c.Starts[next]
			return gap, true
		}
	}
	return 0, false
}

// CanRest 判断单元格是否已是休息日，或仍可能被赋为休息日
func (c *Context) CanRest(agent, day int) bool {
	code := c.Grid[agent][day]
	if code != Unassigned {
		return !c.IsWorked(code)
	}
	for _, v := range c.Domains[agent][day] {
		if !c.IsWorked(v) {
			return true
		}
	}
	return false
}

// RunLengthAround 返回包含 (agent, day) 的已赋值连续工作日长度
func (c *Context) RunLengthAround(agent, day int) int {
	if !c.IsWorked(c.Grid[agent][day]) {
		return 0
	}
	length := 1
	for p := day - 1; p >= 0 && c.IsWorked(c.Grid[agent][p]); p-- {
		length++
	}
	for n := day + 1; n < c.NDays && c.IsWorked(c.Grid[agent][n]); n++ {
		length++
	}
	return length
}

// RollingHours 返回 (agent, [start, start+6]) 窗口内已赋值工时
func (c *Context) RollingHours(agent, start int) float64 {
	var sum float64
	end := start + 6
	if end >= c.NDays {
		end = c.NDays - 1
	}
	for d := start; d <= end; d++ {
		code := c.Grid[agent][d]
		if code != Unassigned {
			sum += c.Durations[code]
		}
	}
	return sum
}
