// Package stats 提供排班统计分析功能
package stats

import (
	"github.com/tourplan/tourplan/pkg/model"
)

// AgentBilan 单个管制员的排班结算
type AgentBilan struct {
	Agent        string         `json:"Agent"`
	TotalHours   float64        `json:"total_hours"`
	WorkedDays   int            `json:"worked_days"`
	TargetDays   int            `json:"target_days"`
	Deviation    int            `json:"deviation"` // 工作日数 − 目标
	WeekendDays  int            `json:"weekend_days"`
	CodeCounts   map[string]int `json:"code_counts"` // 各代码出现天数，含 OFF 与 C
	LeaveDays    int            `json:"leave_days"`
}

// Bilan 排班结算汇总
type Bilan struct {
	Agents       []AgentBilan `json:"agents"`
	TotalHours   float64      `json:"total_hours"`
	AvgHours     float64      `json:"avg_hours"`
	MaxHours     float64      `json:"max_hours"`
	MinHours     float64      `json:"min_hours"`
	HoursRange   float64      `json:"hours_range"`
	Fairness     *FairnessMetrics `json:"fairness,omitempty"`
}

// ComputeBilan 依据排班结果计算结算报表
// 行序与问题中管制员声明顺序一致。
func ComputeBilan(p *model.Problem, planning *model.Planning) *Bilan {
	bilan := &Bilan{
		Agents:   make([]AgentBilan, len(p.Agents)),
		MinHours: -1,
	}

	for a, agent := range p.Agents {
		ab := AgentBilan{
			Agent:      agent.Code,
			CodeCounts: make(map[string]int),
		}
		for d := 0; d < p.Horizon.Len(); d++ {
			code := planning.Get(a, d)
			ab.CodeCounts[code]++
			switch code {
			case model.CodeOff:
				continue
			case model.CodeLeave:
				ab.LeaveDays++
				continue
			}
			ab.WorkedDays++
			ab.TotalHours += p.ShiftByCode[code].Duration()
			if p.Horizon.Days[d].Weekend {
				ab.WeekendDays++
			}
		}
		ab.TargetDays = agent.TargetWorkedDays(p.Horizon.Len(), ab.LeaveDays)
		ab.Deviation = ab.WorkedDays - ab.TargetDays

		bilan.Agents[a] = ab
		bilan.TotalHours += ab.TotalHours
		if ab.TotalHours > bilan.MaxHours {
			bilan.MaxHours = ab.TotalHours
		}
		if bilan.MinHours < 0 || ab.TotalHours < bilan.MinHours {
			bilan.MinHours = ab.TotalHours
		}
	}

	if len(p.Agents) > 0 {
		bilan.AvgHours = bilan.TotalHours / float64(len(p.Agents))
	}
	if bilan.MinHours < 0 {
		bilan.MinHours = 0
	}
	bilan.HoursRange = bilan.MaxHours - bilan.MinHours
	bilan.Fairness = AnalyzeFairness(bilan.Agents)
	return bilan
}
