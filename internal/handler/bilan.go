package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/stats"
	"github.com/tourplan/tourplan/pkg/validator"
)

// BilanHandler 排班结算处理器
type BilanHandler struct{}

// NewBilanHandler 创建排班结算处理器
func NewBilanHandler() *BilanHandler {
	return &BilanHandler{}
}

// BilanRequest /api/bilan 请求体
// request 段与求解请求同构，data 段为求解响应中的排班行。
type BilanRequest struct {
	Request validator.OptimizeRequest `json:"request"`
	Data    []map[string]string       `json:"data"`
}

// BilanResponse 排班结算响应
type BilanResponse struct {
	Status string       `json:"status"`
	Bilan  *stats.Bilan `json:"bilan,omitempty"`
}

// Bilan 处理 POST /api/bilan
// 对既有排班计算每人工时、各代码天数与公平性指标。
func (h *BilanHandler) Bilan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req BilanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	problem, verrs := validator.ValidateRequest(&req.Request)
	if verrs != nil && verrs.HasErrors() {
		respondError(w, errors.New(errors.CodeValidationFail, "请求验证失败").
			WithField("errors", verrs.Errors))
		return
	}

	planning, err := planningFromRows(problem, req.Data)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &BilanResponse{
		Status: "Succès",
		Bilan:  stats.ComputeBilan(problem, planning),
	})
}

// planningFromRows 将响应格式的排班行还原为排班矩阵
func planningFromRows(p *model.Problem, rows []map[string]string) (*model.Planning, *errors.AppError) {
	planning := model.NewPlanning(p.Agents, p.Horizon)
	for _, row := range rows {
		agent, ok := row["Agent"]
		if !ok {
			return nil, errors.New(errors.CodeInvalidInput, "排班行缺少 Agent 键")
		}
		a := p.AgentIndex(agent)
		if a < 0 {
			return nil, errors.New(errors.CodeInvalidInput, "排班行引用未声明的管制员").WithDetails(agent)
		}
		for d := 0; d < p.Horizon.Len(); d++ {
			code, ok := row[p.Horizon.Label(d)]
			if !ok {
				return nil, errors.New(errors.CodeInvalidInput, "排班行缺少日期列").
					WithDetails(p.Horizon.Label(d))
			}
			if code != model.CodeOff && code != model.CodeLeave {
				if _, declared := p.ShiftByCode[code]; !declared {
					return nil, errors.New(errors.CodeInvalidInput, "排班行包含未声明的代码").WithDetails(code)
				}
			}
			planning.Set(a, d, code)
		}
	}
	if !planning.Complete() {
		return nil, errors.New(errors.CodeInvalidInput, "排班数据缺少部分管制员的行")
	}
	return planning, nil
}
