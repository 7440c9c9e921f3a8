// Package report 将求解结果格式化为对外响应
package report

import (
	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/scheduler/solver"
)

// 对外状态文案，前端据此字符串判断成败
const (
	StatusSuccess = "Succès"
	StatusFailure = "Échec"
)

// Diagnostics 求解过程诊断信息
type Diagnostics struct {
	BlockClass     string  `json:"block_class,omitempty"`
	Nodes          int64   `json:"nodes,omitempty"`
	Backtracks     int64   `json:"backtracks,omitempty"`
	Seed           int64   `json:"seed"`
	Score          float64 `json:"score,omitempty"`
	SoftViolations int     `json:"soft_violations"`
	ElapsedMillis  int64   `json:"elapsed_ms,omitempty"`
}

// Response 排班响应
// data 的每行以 "Agent" 键承载管制员代码，其余键为年内日序号。
type Response struct {
	Status          string              `json:"status"`
	Data            []map[string]string `json:"data,omitempty"`
	AlgorithmStatus string              `json:"algorithm_status,omitempty"`
	Message         string              `json:"message,omitempty"`
	ErrorCode       string              `json:"error_code,omitempty"`
	Errors          []errors.ValidationError `json:"errors,omitempty"`
	Diagnostics     *Diagnostics        `json:"diagnostics,omitempty"`
}

// ValidationFailure 格式化请求验证失败结果
// 一次性返回全部验证错误，便于前端整批展示。
func ValidationFailure(verrs *errors.ValidationErrors) *Response {
	return &Response{
		Status:    StatusFailure,
		Message:   "请求验证失败",
		ErrorCode: string(errors.CodeValidationFail),
		Errors:    verrs.Errors,
	}
}

// Success 格式化成功结果
func Success(p *model.Problem, sol *solver.Solution) *Response {
	rows := make([]map[string]string, len(p.Agents))
	for a := range p.Agents {
		rows[a] = sol.Planning.Row(a)
	}
	return &Response{
		Status:          StatusSuccess,
		Data:            rows,
		AlgorithmStatus: string(sol.Status),
		Diagnostics: &Diagnostics{
			Nodes:          sol.Stats.Nodes,
			Backtracks:     sol.Stats.Backtracks,
			Seed:           p.Seed,
			Score:          sol.Score,
			SoftViolations: countSoftViolations(p, sol.Planning),
			ElapsedMillis:  sol.Stats.Elapsed.Milliseconds(),
		},
	}
}

// Failure 格式化失败结果
// 错误携带的诊断字段（阻塞类别、种子、节点数）透传给前端。
func Failure(err *errors.AppError) *Response {
	resp := &Response{
		Status:    StatusFailure,
		Message:   err.Message,
		ErrorCode: string(err.Code),
	}
	diag := &Diagnostics{}
	loaded := false
	if v, ok := err.Fields["block_class"].(string); ok {
		diag.BlockClass = v
		loaded = true
	}
	if v, ok := err.Fields["seed"].(int64); ok {
		diag.Seed = v
		loaded = true
	}
	if v, ok := err.Fields["nodes"].(int64); ok {
		diag.Nodes = v
		loaded = true
	}
	if v, ok := err.Fields["backtracks"].(int64); ok {
		diag.Backtracks = v
		loaded = true
	}
	if loaded {
		resp.Diagnostics = diag
	}
	return resp
}

// countSoftViolations 统计未满足的软意愿条数
func countSoftViolations(p *model.Problem, planning *model.Planning) int {
	count := 0
	for _, des := range p.Desiderata {
		if des.Priority != model.DesideratumSoft {
			continue
		}
		a := p.AgentIndex(des.Agent)
		if a < 0 || des.Day < 0 || des.Day >= p.Horizon.Len() {
			continue
		}
		got := planning.Get(a, des.Day)
		satisfied := false
		for _, code := range des.Codes {
			if got == code {
				satisfied = true
				break
			}
		}
		if !satisfied {
			count++
		}
	}
	return count
}
