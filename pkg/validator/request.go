// Package validator 提供请求验证与领域模型构建
package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
)

// CodeList 预分配单元格的意愿代码：线上既可能是单个字符串也可能是列表
type CodeList []string

// UnmarshalJSON 兼容 "M" 与 ["A1","A2"] 两种形式
func (c *CodeList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = CodeList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("意愿代码必须是字符串或字符串列表")
	}
	*c = CodeList(list)
	return nil
}

// VacationTimes 班次起止时间（小数小时）
type VacationTimes struct {
	Debut float64 `json:"debut"`
	Fin   float64 `json:"fin"`
}

// CycleSet 某管制员的周期偏好，按优先级分组
type CycleSet struct {
	Or     [][]string `json:"OR,omitempty"`
	Argent [][]string `json:"ARGENT,omitempty"`
}

// ContratConfig 合同规则配置
type ContratConfig struct {
	MinRestHours                float64 `json:"MIN_REST_HOURS" validate:"min=0"`
	MaxConsecutiveShifts        int     `json:"MAX_CONSECUTIVE_SHIFTS" validate:"min=0"`
	MaxHoursWeekCalendar        float64 `json:"MAX_HOURS_WEEK_CALENDAR" validate:"min=0"`
	MaxHours7Rolling            float64 `json:"MAX_HOURS_7_ROLLING" validate:"min=0"`
	SolverTimeLimit             int     `json:"SOLVER_TIME_LIMIT" validate:"min=0"`
	MaxBacktracks               int64   `json:"MAX_BACKTRACKS" validate:"min=0"`
	Require2ConsecutiveRestDays *bool   `json:"REQUIRE_2_CONSECUTIVE_REST_DAYS,omitempty"`
}

// RequestConfig 请求配置段（与前端 AppConfig 对齐）
type RequestConfig struct {
	Annee        int                      `json:"ANNEE"`
	Controleurs  []string                 `json:"CONTROLEURS" validate:"required,min=1"`
	Bureau       []string                 `json:"CONTROLLERS_AFFECTES_BUREAU,omitempty"`
	PariteStrict []string                 `json:"CONTROLLERS_PARITE_STRICTE,omitempty"`
	WorkRates    map[string]int           `json:"AGENT_WORK_RATES,omitempty"`
	Vacations    map[string]VacationTimes `json:"VACATIONS" validate:"required,min=1"`
	Cycles       map[string]CycleSet      `json:"CYCLES,omitempty"`
	Contrat      ContratConfig            `json:"CONTRAT"`
}

// OptimizeRequest /api/optimize 请求体
type OptimizeRequest struct {
	Year             int                            `json:"year"`
	StartDay         int                            `json:"start_day" validate:"min=1,max=366"`
	EndDay           int                            `json:"end_day" validate:"min=1,max=366"`
	Config           RequestConfig                  `json:"config"`
	PreAssignments   map[string]map[string]CodeList `json:"pre_assignments,omitempty"`
	SoftAssignments  []string                       `json:"soft_assignments,omitempty"`
	OptionalCoverage map[string][]string            `json:"optional_coverage,omitempty"`
	Seed             int64                          `json:"seed,omitempty" validate:"min=0"`
}

// 默认合同参数：仅在请求未给出时回填
const (
	defaultSolverTimeLimit = 10
	defaultSeed            = 1
)

var structValidator = playground.New(playground.WithRequiredStructEnabled())

// ValidateRequest 验证请求并构建领域模型
// 纯函数：要么返回完整的 Problem，要么返回全部累积的验证错误，
// 绝不让畸形输入深入求解器。
func ValidateRequest(req *OptimizeRequest) (*model.Problem, *errors.ValidationErrors) {
	ve := &errors.ValidationErrors{}

	// 结构层：必填与数值范围
	if err := structValidator.Struct(req); err != nil {
		if fieldErrs, ok := err.(playground.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				path := strings.TrimPrefix(fe.Namespace(), "OptimizeRequest.")
				ve.Addf(path, "不满足规则 '%s'", fe.Tag())
			}
		} else {
			ve.Add("request", err.Error())
		}
	}

	year := req.Year
	if year == 0 {
		year = req.Config.Annee
	}
	if year == 0 {
		ve.Add("year", "年份不能为空")
	}

	// 周期
	var horizon *model.Horizon
	if year != 0 && req.StartDay >= 1 && req.StartDay <= 366 && req.EndDay >= 1 && req.EndDay <= 366 {
		h, err := model.NewHorizon(year, req.StartDay, req.EndDay)
		if err != nil {
			ve.Add("start_day", err.Error())
		} else if h.Len() < 1 {
			ve.Add("end_day", "周期长度必须至少为 1 天")
		} else {
			horizon = h
		}
	}

	// 班次表
	shifts, shiftByCode := buildShifts(req.Config.Vacations, ve)

	// 管制员名册
	agents := buildAgents(&req.Config, shiftByCode, ve)
	agentSet := make(map[string]bool, len(agents))
	for _, a := range agents {
		agentSet[a.Code] = true
	}

	// 预分配意愿
	var desiderata []model.Desideratum
	if horizon != nil {
		softSet := parseSoftAssignments(req.SoftAssignments, agentSet, horizon, ve)
		desiderata = buildDesiderata(req.PreAssignments, softSet, agentSet, shiftByCode, horizon, ve)
	}

	// 可选覆盖降级
	coverage := model.NewCoverage()
	if horizon != nil {
		for dayStr, codes := range req.OptionalCoverage {
			num, err := strconv.Atoi(dayStr)
			if err != nil {
				ve.Addf("optional_coverage."+dayStr, "日序号无法解析")
				continue
			}
			idx := horizon.IndexOfDayNumber(num)
			if idx < 0 {
				ve.Addf("optional_coverage."+dayStr, "日序号 %d 不在排班周期内", num)
				continue
			}
			for _, code := range codes {
				if _, ok := shiftByCode[code]; !ok {
					ve.Addf("optional_coverage."+dayStr, "未知班次代码 '%s'", code)
					continue
				}
				coverage.SetOptional(idx, code)
			}
		}
	}

	rules := buildRules(&req.Config.Contrat)

	seed := req.Seed
	if seed == 0 {
		seed = defaultSeed
	}

	if ve.HasErrors() {
		return nil, ve
	}

	return &model.Problem{
		Horizon:     horizon,
		Agents:      agents,
		Shifts:      shifts,
		ShiftByCode: shiftByCode,
		Rules:       rules,
		Desiderata:  desiderata,
		Coverage:    coverage,
		Seed:        seed,
	}, nil
}

// maxShiftCodes 班次代码数量上限
// 编译后的代码下标与软意愿位掩码宽度均以 64 为界（含 OFF 与 C）。
const maxShiftCodes = 60

// buildShifts 构建班次表，按代码升序保证确定性
func buildShifts(vacations map[string]VacationTimes, ve *errors.ValidationErrors) ([]model.ShiftType, map[string]model.ShiftType) {
	if len(vacations) > maxShiftCodes {
		ve.Addf("config.VACATIONS", "班次代码数量 %d 超过上限 %d", len(vacations), maxShiftCodes)
	}

	codes := make([]string, 0, len(vacations))
	for code := range vacations {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	shifts := make([]model.ShiftType, 0, len(codes))
	byCode := make(map[string]model.ShiftType, len(codes))
	for _, code := range codes {
		times := vacations[code]
		field := "config.VACATIONS." + code
		if model.IsRestCode(code) {
			ve.Addf(field, "代码 '%s' 为保留代码，不能定义为班次", code)
			continue
		}
		if times.Debut < 0 || times.Debut >= 24 || times.Fin < 0 || times.Fin > 24 {
			ve.Addf(field, "起止时间必须在 24 小时制内: debut=%.2f fin=%.2f", times.Debut, times.Fin)
			continue
		}
		if times.Fin <= times.Debut {
			ve.Addf(field, "班次时长必须为正（班次不得跨午夜）: debut=%.2f fin=%.2f", times.Debut, times.Fin)
			continue
		}
		s := model.ShiftType{Code: code, Start: times.Debut, End: times.Fin}
		shifts = append(shifts, s)
		byCode[code] = s
	}
	return shifts, byCode
}

// buildAgents 构建管制员名册
func buildAgents(cfg *RequestConfig, shiftByCode map[string]model.ShiftType, ve *errors.ValidationErrors) []model.Agent {
	seen := make(map[string]bool, len(cfg.Controleurs))
	agents := make([]model.Agent, 0, len(cfg.Controleurs))

	for i, code := range cfg.Controleurs {
		field := fmt.Sprintf("config.CONTROLEURS[%d]", i)
		if code == "" {
			ve.Add(field, "管制员代码不能为空")
			continue
		}
		if seen[code] {
			ve.Addf(field, "管制员代码 '%s' 重复", code)
			continue
		}
		seen[code] = true

		agent := model.Agent{Code: code, WorkRate: 100}
		if rate, ok := cfg.WorkRates[code]; ok {
			if rate <= 0 || rate > 100 {
				ve.Addf("config.AGENT_WORK_RATES."+code, "工作率必须在 (0, 100] 内: %d", rate)
			} else {
				agent.WorkRate = rate
			}
		}
		agents = append(agents, agent)
	}

	markAgents(cfg.Bureau, seen, "config.CONTROLLERS_AFFECTES_BUREAU", ve, func(code string) {
		for i := range agents {
			if agents[i].Code == code {
				agents[i].Bureau = true
			}
		}
	})
	markAgents(cfg.PariteStrict, seen, "config.CONTROLLERS_PARITE_STRICTE", ve, func(code string) {
		for i := range agents {
			if agents[i].Code == code {
				agents[i].StrictParity = true
			}
		}
	})

	// 工作率表中不存在的管制员
	for code := range cfg.WorkRates {
		if !seen[code] {
			ve.Addf("config.AGENT_WORK_RATES."+code, "管制员 '%s' 不在名册中", code)
		}
	}

	// 周期偏好
	for agentCode, set := range cfg.Cycles {
		if !seen[agentCode] {
			ve.Addf("config.CYCLES."+agentCode, "管制员 '%s' 不在名册中", agentCode)
			continue
		}
		idx := -1
		for i := range agents {
			if agents[i].Code == agentCode {
				idx = i
				break
			}
		}
		agents[idx].Cycles = append(agents[idx].Cycles,
			buildCycles(set.Or, model.CycleGold, agentCode, shiftByCode, ve)...)
		agents[idx].Cycles = append(agents[idx].Cycles,
			buildCycles(set.Argent, model.CycleSilver, agentCode, shiftByCode, ve)...)
	}

	return agents
}

// markAgents 校验并标记名单中的管制员
func markAgents(list []string, roster map[string]bool, field string, ve *errors.ValidationErrors, mark func(string)) {
	for _, code := range list {
		if !roster[code] {
			ve.Addf(field, "管制员 '%s' 不在名册中", code)
			continue
		}
		mark(code)
	}
}

// buildCycles 构建某优先级的周期偏好对
func buildCycles(pairs [][]string, prio model.CyclePriority, agent string, shiftByCode map[string]model.ShiftType, ve *errors.ValidationErrors) []model.CyclePreference {
	var out []model.CyclePreference
	for i, pair := range pairs {
		field := fmt.Sprintf("config.CYCLES.%s[%d]", agent, i)
		if len(pair) != 2 {
			ve.Add(field, "周期偏好必须是 [前班次, 后班次] 数对")
			continue
		}
		valid := true
		for _, code := range pair {
			if _, ok := shiftByCode[code]; !ok {
				ve.Addf(field, "未知班次代码 '%s'", code)
				valid = false
			}
		}
		if valid {
			out = append(out, model.CyclePreference{From: pair[0], To: pair[1], Priority: prio})
		}
	}
	return out
}

// parseSoftAssignments 解析软意愿标记 "AGENT_DAY"
// 以最后一个下划线切分，允许管制员代码本身含下划线。
func parseSoftAssignments(keys []string, agentSet map[string]bool, h *model.Horizon, ve *errors.ValidationErrors) map[string]bool {
	soft := make(map[string]bool, len(keys))
	for i, key := range keys {
		field := fmt.Sprintf("soft_assignments[%d]", i)
		cut := strings.LastIndex(key, "_")
		if cut <= 0 || cut == len(key)-1 {
			ve.Addf(field, "格式必须为 'AGENT_JOUR': '%s'", key)
			continue
		}
		agent, dayStr := key[:cut], key[cut+1:]
		num, err := strconv.Atoi(dayStr)
		if err != nil {
			ve.Addf(field, "日序号无法解析: '%s'", dayStr)
			continue
		}
		if !agentSet[agent] {
			ve.Addf(field, "管制员 '%s' 不在名册中", agent)
			continue
		}
		if h.IndexOfDayNumber(num) < 0 {
			ve.Addf(field, "日序号 %d 不在排班周期内", num)
			continue
		}
		soft[key] = true
	}
	return soft
}

// buildDesiderata 将预分配转换为意愿集合
func buildDesiderata(pre map[string]map[string]CodeList, softSet, agentSet map[string]bool, shiftByCode map[string]model.ShiftType, h *model.Horizon, ve *errors.ValidationErrors) []model.Desideratum {
	// 按管制员、日序号排序遍历，保证意愿顺序确定
	agents := make([]string, 0, len(pre))
	for a := range pre {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	var out []model.Desideratum
	for _, agent := range agents {
		if !agentSet[agent] {
			ve.Addf("pre_assignments."+agent, "管制员 '%s' 不在名册中", agent)
			continue
		}
		days := make([]string, 0, len(pre[agent]))
		for d := range pre[agent] {
			days = append(days, d)
		}
		sort.Strings(days)

		for _, dayStr := range days {
			field := fmt.Sprintf("pre_assignments.%s.%s", agent, dayStr)
			num, err := strconv.Atoi(dayStr)
			if err != nil {
				ve.Add(field, "日序号无法解析")
				continue
			}
			idx := h.IndexOfDayNumber(num)
			if idx < 0 {
				ve.Addf(field, "日序号 %d 不在排班周期内", num)
				continue
			}
			codes := pre[agent][dayStr]
			if len(codes) == 0 {
				ve.Add(field, "意愿代码列表不能为空")
				continue
			}
			valid := true
			for _, code := range codes {
				if model.IsRestCode(code) {
					continue
				}
				if _, ok := shiftByCode[code]; !ok {
					// 未识别代码（如前端导入映射出的 STAGE）直接拒绝，
					// 而不是猜测其为未知时长的工作日。
					ve.Addf(field, "未知班次代码 '%s'", code)
					valid = false
				}
			}
			if !valid {
				continue
			}
			prio := model.DesideratumHard
			if softSet[fmt.Sprintf("%s_%d", agent, num)] {
				prio = model.DesideratumSoft
			}
			out = append(out, model.Desideratum{
				Agent:    agent,
				Day:      idx,
				Codes:    append([]string(nil), codes...),
				Priority: prio,
			})
		}
	}
	return out
}

// buildRules 构建合同规则并回填默认值
func buildRules(c *ContratConfig) model.ContractRules {
	rules := model.ContractRules{
		MinRestHours:         c.MinRestHours,
		MaxConsecutiveShifts: c.MaxConsecutiveShifts,
		MaxHoursWeekCalendar: c.MaxHoursWeekCalendar,
		MaxHours7Rolling:     c.MaxHours7Rolling,
		SolverTimeLimit:      c.SolverTimeLimit,
		MaxBacktracks:        c.MaxBacktracks,
	}
	if rules.SolverTimeLimit <= 0 {
		rules.SolverTimeLimit = defaultSolverTimeLimit
	}
	// 未显式给出时按前端默认勾选处理
	rules.Require2ConsecutiveRestDays = c.Require2ConsecutiveRestDays == nil || *c.Require2ConsecutiveRestDays
	return rules
}
