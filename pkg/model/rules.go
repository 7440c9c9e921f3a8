package model

// ContractRules 劳动合同硬规则
type ContractRules struct {
	MinRestHours                float64 `json:"min_rest_hours"`            // 相邻两次执勤间的最小休息小时数
	MaxConsecutiveShifts        int     `json:"max_consecutive_shifts"`    // 最大连续工作天数（非 OFF / 非 C）
	MaxHoursWeekCalendar        float64 `json:"max_hours_week_calendar"`   // 日历周（周一至周日）工时上限
	MaxHours7Rolling            float64 `json:"max_hours_7_rolling"`       // 任意连续 7 天工时上限
	Require2ConsecutiveRestDays bool    `json:"require_2_consecutive_rest"`// 每个 7 天滑动窗口内至少一对相邻休息日
	SolverTimeLimit             int     `json:"solver_time_limit"`         // 求解时间预算（秒）
	MaxBacktracks               int64   `json:"max_backtracks"`            // 回溯次数上限，0 = 不限
}

// DesideratumPriority 意愿优先级
type DesideratumPriority string

const (
	DesideratumHard DesideratumPriority = "hard" // 必须满足，无法满足即不可行
	DesideratumSoft DesideratumPriority = "soft" // 违反仅受罚，不禁止
)

// Desideratum (agent, day) → 允许代码集合 的意愿
type Desideratum struct {
	Agent    string              `json:"agent"`
	Day      int                 `json:"day"` // 周期内偏移
	Codes    []string            `json:"codes"`
	Priority DesideratumPriority `json:"priority"`
}

// Requirement 覆盖需求强度
type Requirement string

const (
	RequirementMandatory Requirement = "mandatory" // 当天必须至少一名执勤该班次
	RequirementOptional  Requirement = "optional"  // 期望覆盖，不强制
)

// Coverage 覆盖需求表
// 所有已声明班次在每一天默认 MANDATORY，optional 表按天降级。
type Coverage struct {
	Optional map[int]map[string]bool `json:"optional,omitempty"` // day index → code set
}

// NewCoverage 创建覆盖需求表
func NewCoverage() Coverage {
	return Coverage{Optional: make(map[int]map[string]bool)}
}

// SetOptional 将某天的某班次降级为可选覆盖
func (c *Coverage) SetOptional(day int, code string) {
	if c.Optional == nil {
		c.Optional = make(map[int]map[string]bool)
	}
	if c.Optional[day] == nil {
		c.Optional[day] = make(map[string]bool)
	}
	c.Optional[day][code] = true
}

// Requirement 返回 (day, code) 的覆盖强度
func (c Coverage) Requirement(day int, code string) Requirement {
	if set, ok := c.Optional[day]; ok && set[code] {
		return RequirementOptional
	}
	return RequirementMandatory
}

// Problem 经验证的领域模型：求解器的唯一输入
// 求解过程中只读；内部代码不再解释任何弱类型配置。
type Problem struct {
	RequestID   string               `json:"request_id"`
	Horizon     *Horizon             `json:"horizon"`
	Agents      []Agent              `json:"agents"`
	Shifts      []ShiftType          `json:"shifts"` // 按代码升序，保证确定性
	ShiftByCode map[string]ShiftType `json:"-"`
	Rules       ContractRules        `json:"rules"`
	Desiderata  []Desideratum        `json:"desiderata,omitempty"`
	Coverage    Coverage             `json:"coverage"`
	Seed        int64                `json:"seed"`
}

// AgentIndex 由代码反查管制员下标，找不到返回 -1
func (p *Problem) AgentIndex(code string) int {
	for i, a := range p.Agents {
		if a.Code == code {
			return i
		}
	}
	return -1
}

// LeaveDays 统计某管制员被硬性固定为 C 的天数
func (p *Problem) LeaveDays(agent string) int {
	count := 0
	for _, d := range p.Desiderata {
		if d.Agent != agent || d.Priority != DesideratumHard {
			continue
		}
		if len(d.Codes) == 1 && d.Codes[0] == CodeLeave {
			count++
		}
	}
	return count
}
