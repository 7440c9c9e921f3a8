package model

import "math"

// CyclePriority 周期偏好优先级
type CyclePriority string

const (
	CycleGold   CyclePriority = "gold"   // 线上键 OR
	CycleSilver CyclePriority = "silver" // 线上键 ARGENT
)

// CyclePreference 两日班次接续偏好
// 若某日执勤 From，则次日强烈倾向执勤 To。
type CyclePreference struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Priority CyclePriority `json:"priority"`
}

// Agent 可排班的管制员
type Agent struct {
	Code         string            `json:"code"`
	WorkRate     int               `json:"work_rate"`     // 合同工作率百分比，(0, 100]
	Bureau       bool              `json:"bureau"`        // 办公室专职，默认不进入班次覆盖池
	StrictParity bool              `json:"strict_parity"` // 要求周期内工作日数为偶数
	Cycles       []CyclePreference `json:"cycles,omitempty"`
}

// RateFraction 返回工作率的小数形式
func (a Agent) RateFraction() float64 {
	return float64(a.WorkRate) / 100.0
}

// TargetWorkedDays 计算按工作率折算的目标工作日数
// 公式与前端展示口径一致：ceil(rate × (horizonDays − leaveDays) / 2)
func (a Agent) TargetWorkedDays(horizonDays, leaveDays int) int {
	avail := horizonDays - leaveDays
	if avail < 0 {
		avail = 0
	}
	return int(math.Ceil(a.RateFraction() * float64(avail) / 2.0))
}
