// Package scenario 端到端场景测试：从请求验证到求解与响应格式化
package scenario

import (
	"context"
	"reflect"
	"testing"
	"time"

	appErrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/scheduler"
	"github.com/tourplan/tourplan/pkg/scheduler/report"
	"github.com/tourplan/tourplan/pkg/validator"
)

func baseRequest(controleurs []string, startDay, endDay int, vacations map[string]validator.VacationTimes) *validator.OptimizeRequest {
	return &validator.OptimizeRequest{
		Year:     2025,
		StartDay: startDay,
		EndDay:   endDay,
		Config: validator.RequestConfig{
			Controleurs: controleurs,
			Vacations:   vacations,
			Contrat: validator.ContratConfig{
				MinRestHours:    11,
				SolverTimeLimit: 10,
			},
		},
	}
}

func solve(t *testing.T, req *validator.OptimizeRequest) (*report.Response, error) {
	t.Helper()
	problem, verrs := validator.ValidateRequest(req)
	if verrs != nil {
		t.Fatalf("request rejected: %v", verrs)
	}
	sched := scheduler.New(scheduler.Options{Workers: 1})
	sol, err := sched.Solve(context.Background(), problem)
	if err != nil {
		return nil, err
	}
	return report.Success(problem, sol), nil
}

// 3 名管制员、3 天、单一必备班次：每天恰好一人执勤，其余休息
func TestMinimalStaffing(t *testing.T) {
	req := baseRequest([]string{"AA", "BB", "CC"}, 10, 12,
		map[string]validator.VacationTimes{"M": {Debut: 6, Fin: 14}})
	resp, err := solve(t, req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if resp.Status != report.StatusSuccess {
		t.Fatalf("expected %s, got %s", report.StatusSuccess, resp.Status)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("expected 3 agent rows, got %d", len(resp.Data))
	}
	for _, day := range []string{"10", "11", "12"} {
		working := 0
		for _, row := range resp.Data {
			switch row[day] {
			case "M":
				working++
			case "OFF":
			default:
				t.Fatalf("unexpected code %q on day %s", row[day], day)
			}
		}
		if working != 1 {
			t.Errorf("day %s: expected exactly one M, got %d", day, working)
		}
	}
}

// 单人无法覆盖两个必备班次：不可行，阻塞类别为覆盖
func TestInfeasibleCoverage(t *testing.T) {
	req := baseRequest([]string{"AA"}, 10, 10,
		map[string]validator.VacationTimes{
			"M": {Debut: 6, Fin: 14},
			"S": {Debut: 15, Fin: 23},
		})
	_, err := solve(t, req)
	if err == nil {
		t.Fatal("expected infeasibility")
	}
	appErr, ok := err.(*appErrors.AppError)
	if !ok || appErr.Code != appErrors.CodeNoFeasibleSolution {
		t.Fatalf("expected NO_FEASIBLE_SOLUTION, got %v", err)
	}
	if appErr.Fields["block_class"] != "coverage" {
		t.Errorf("expected coverage block, got %v", appErr.Fields["block_class"])
	}

	resp := report.Failure(appErr)
	if resp.Status != report.StatusFailure {
		t.Errorf("expected %s, got %s", report.StatusFailure, resp.Status)
	}
	if resp.Diagnostics == nil || resp.Diagnostics.BlockClass != "coverage" {
		t.Error("diagnostics must carry the block class")
	}
}

// 硬意愿强制晚班后接早班：休息间隔 7 小时，低于 11 小时下限
func TestInfeasibleRest(t *testing.T) {
	req := baseRequest([]string{"XX", "YY"}, 10, 11,
		map[string]validator.VacationTimes{
			"M": {Debut: 6, Fin: 14},
			"S": {Debut: 15, Fin: 23},
		})
	req.PreAssignments = map[string]map[string]validator.CodeList{
		"XX": {"10": {"S"}, "11": {"M"}},
		"YY": {"10": {"M"}, "11": {"S"}},
	}
	_, err := solve(t, req)
	if err == nil {
		t.Fatal("expected infeasibility")
	}
	appErr, ok := err.(*appErrors.AppError)
	if !ok || appErr.Code != appErrors.CodeNoFeasibleSolution {
		t.Fatalf("expected NO_FEASIBLE_SOLUTION, got %v", err)
	}
	if appErr.Fields["block_class"] != "rest" {
		t.Errorf("expected rest block, got %v", appErr.Fields["block_class"])
	}
}

// 软意愿可满足时必须被满足
func TestSoftDesideratumHonoured(t *testing.T) {
	req := baseRequest([]string{"AA", "BB", "CC"}, 10, 12,
		map[string]validator.VacationTimes{"M": {Debut: 6, Fin: 14}})
	req.PreAssignments = map[string]map[string]validator.CodeList{
		"AA": {"11": {"M"}},
	}
	req.SoftAssignments = []string{"AA_11"}
	resp, err := solve(t, req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	var aa map[string]string
	for _, row := range resp.Data {
		if row["Agent"] == "AA" {
			aa = row
		}
	}
	if aa == nil {
		t.Fatal("agent AA missing from response")
	}
	if aa["11"] != "M" {
		t.Errorf("satisfiable soft desideratum not honoured: got %q", aa["11"])
	}
	if resp.Diagnostics.SoftViolations != 0 {
		t.Errorf("expected zero soft violations, got %d", resp.Diagnostics.SoftViolations)
	}
}

// 互相冲突的硬意愿在编译阶段即被判不可行
func TestConflictingHardDesiderata(t *testing.T) {
	req := baseRequest([]string{"AA", "BB"}, 10, 12,
		map[string]validator.VacationTimes{"M": {Debut: 6, Fin: 14}})
	req.PreAssignments = map[string]map[string]validator.CodeList{
		"AA": {"11": {"C"}},
	}
	problem, verrs := validator.ValidateRequest(req)
	if verrs != nil {
		t.Fatalf("request rejected: %v", verrs)
	}
	// 同一单元格再叠加一条互斥的硬意愿：交集为空
	problem.Desiderata = append(problem.Desiderata, problem.Desiderata[0])
	problem.Desiderata[1].Codes = []string{"M"}

	_, err := scheduler.New(scheduler.Options{Workers: 1}).Solve(context.Background(), problem)
	appErr, ok := err.(*appErrors.AppError)
	if !ok || appErr.Code != appErrors.CodeNoFeasibleSolution {
		t.Fatalf("expected NO_FEASIBLE_SOLUTION, got %v", err)
	}
	if appErr.Fields["block_class"] != "hard-desideratum" {
		t.Errorf("expected hard-desideratum block, got %v", appErr.Fields["block_class"])
	}
}

// 极小时间预算：绝不崩溃，要么给出解要么报预算状态
func TestTinyBudgetNeverCrashes(t *testing.T) {
	controleurs := []string{"A1", "A2", "A3", "A4", "A5", "A6"}
	req := baseRequest(controleurs, 10, 30,
		map[string]validator.VacationTimes{
			"M": {Debut: 6, Fin: 14},
			"J": {Debut: 9, Fin: 17},
			"S": {Debut: 15, Fin: 23},
		})
	problem, verrs := validator.ValidateRequest(req)
	if verrs != nil {
		t.Fatalf("request rejected: %v", verrs)
	}

	goCtx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	sol, err := scheduler.New(scheduler.Options{Workers: 1}).Solve(goCtx, problem)
	if err == nil {
		if sol == nil || sol.Planning == nil {
			t.Fatal("nil error must carry a planning")
		}
		return
	}
	switch appErrors.GetCode(err) {
	case appErrors.CodeTimeBudgetExceeded, appErrors.CodeTimeout, appErrors.CodeNoFeasibleSolution:
	default:
		t.Fatalf("unexpected error under a tiny budget: %v", err)
	}
}

// 同一请求同一种子重复求解：响应完全一致
func TestIdempotentReplay(t *testing.T) {
	build := func() *validator.OptimizeRequest {
		req := baseRequest([]string{"AA", "BB", "CC"}, 10, 13,
			map[string]validator.VacationTimes{
				"M": {Debut: 6, Fin: 14},
				"S": {Debut: 15, Fin: 23},
			})
		req.Config.Contrat.MaxConsecutiveShifts = 5
		req.Seed = 99
		return req
	}
	a, errA := solve(t, build())
	b, errB := solve(t, build())
	if errA != nil || errB != nil {
		t.Fatalf("solve: %v / %v", errA, errB)
	}
	if !reflect.DeepEqual(a.Data, b.Data) {
		t.Fatal("same request and seed produced different plannings")
	}
}

// 放宽约束绝不把可行问题变为不可行
func TestRelaxationKeepsFeasible(t *testing.T) {
	strict := baseRequest([]string{"AA", "BB", "CC"}, 10, 13,
		map[string]validator.VacationTimes{"M": {Debut: 6, Fin: 14}})
	strict.Config.Contrat.MaxConsecutiveShifts = 2
	if _, err := solve(t, strict); err != nil {
		t.Fatalf("strict variant must be feasible: %v", err)
	}

	relaxed := baseRequest([]string{"AA", "BB", "CC"}, 10, 13,
		map[string]validator.VacationTimes{"M": {Debut: 6, Fin: 14}})
	relaxed.Config.Contrat.MaxConsecutiveShifts = 0
	if _, err := solve(t, relaxed); err != nil {
		t.Fatalf("relaxed variant must stay feasible: %v", err)
	}
}
