package solver

import (
	"time"

	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
)

// Status 求解结束状态
type Status string

const (
	// StatusOptimal 搜索空间已穷尽，当前解为最优
	StatusOptimal Status = "optimal"
	// StatusTimeLimit 时间或回溯预算耗尽，返回已找到的最好解
	StatusTimeLimit Status = "time-limit, best-found"
	// StatusInfeasible 搜索空间已穷尽且无任何可行解
	StatusInfeasible Status = "infeasible"
	// StatusBudgetNoSolution 预算耗尽且尚未找到任何可行解
	StatusBudgetNoSolution Status = "time-limit, no solution"
	// StatusCancelled 外部取消
	StatusCancelled Status = "cancelled"
)

// Stats 单次搜索的统计信息
type Stats struct {
	Nodes      int64                               `json:"nodes"`
	Backtracks int64                               `json:"backtracks"`
	Elapsed    time.Duration                       `json:"elapsed"`
	Seed       int64                               `json:"seed"`
	Worker     int                                 `json:"worker"`
	Blocks     map[constraint.BlockClass]int64     `json:"blocks,omitempty"`
}

// DominantBlock 返回回溯次数最多的阻塞类别
// 不可行诊断以此归因。类别名升序决胜，保证确定性。
func (s *Stats) DominantBlock() constraint.BlockClass {
	var best constraint.BlockClass
	var bestCount int64 = -1
	for class, count := range s.Blocks {
		if count > bestCount || (count == bestCount && class < best) {
			best = class
			bestCount = count
		}
	}
	return best
}

// Solution 求解结果
type Solution struct {
	Planning *model.Planning `json:"planning,omitempty"`
	Score    float64         `json:"score"`
	Status   Status          `json:"status"`
	Stats    Stats           `json:"stats"`
}

// Feasible 判断是否携带可行排班
func (s *Solution) Feasible() bool {
	return s.Planning != nil
}
