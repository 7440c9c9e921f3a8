package validator

import (
	"testing"

	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
)

func auditProblem(t *testing.T) *model.Problem {
	t.Helper()
	p, verrs := ValidateRequest(validRequest())
	if verrs != nil {
		t.Fatalf("unexpected validation errors: %v", verrs)
	}
	return p
}

// legalPlanning 构造一张满足全部默认规则的排班
// 三人轮替：每人都有一对相邻休息日，每天 M 与 S 均有人执勤。
func legalPlanning(p *model.Problem) *model.Planning {
	planning := model.NewPlanning(p.Agents, p.Horizon)
	rows := [][]string{
		{"M", "M", "OFF", "OFF", "M", "M", "M"},
		{"S", "S", "S", "S", "OFF", "OFF", "S"},
		{"OFF", "OFF", "M", "M", "S", "S", "OFF"},
	}
	for a, row := range rows {
		for d, code := range row {
			planning.Set(a, d, code)
		}
	}
	return planning
}

func expectFault(t *testing.T, fault *errors.AppError) {
	t.Helper()
	if fault == nil {
		t.Fatal("expected a solver fault")
	}
	if fault.Code != errors.CodeSolverFault {
		t.Fatalf("audit failures must be SOLVER_FAULT, got %s", fault.Code)
	}
}

func TestAuditPlanning_Valid(t *testing.T) {
	p := auditProblem(t)
	if fault := AuditPlanning(p, legalPlanning(p)); fault != nil {
		t.Fatalf("valid planning rejected: %v", fault)
	}
}

func TestAuditPlanning_NilPlanning(t *testing.T) {
	expectFault(t, AuditPlanning(auditProblem(t), nil))
}

func TestAuditPlanning_Incomplete(t *testing.T) {
	p := auditProblem(t)
	planning := legalPlanning(p)
	planning.Set(0, 4, "")
	expectFault(t, AuditPlanning(p, planning))
}

func TestAuditPlanning_UndeclaredCode(t *testing.T) {
	p := auditProblem(t)
	planning := legalPlanning(p)
	planning.Set(2, 0, "NUIT")
	expectFault(t, AuditPlanning(p, planning))
}

func TestAuditPlanning_RestViolation(t *testing.T) {
	p := auditProblem(t)
	planning := legalPlanning(p)
	// BB 第 2 天 S(→23:00) 后第 3 天 M(06:00→)：间隔 7 小时 < 11
	planning.Set(1, 3, "M")
	expectFault(t, AuditPlanning(p, planning))
}

func TestAuditPlanning_HardDesideratumViolation(t *testing.T) {
	p := auditProblem(t)
	p.Desiderata = append(p.Desiderata, model.Desideratum{
		Agent: "CC", Day: 2, Codes: []string{"C"}, Priority: model.DesideratumHard,
	})
	expectFault(t, AuditPlanning(p, legalPlanning(p)))
}

// 被违反的软意愿不构成复核失败
func TestAuditPlanning_SoftDesideratumIgnored(t *testing.T) {
	p := auditProblem(t)
	p.Desiderata = append(p.Desiderata, model.Desideratum{
		Agent: "CC", Day: 2, Codes: []string{"S"}, Priority: model.DesideratumSoft,
	})
	if fault := AuditPlanning(p, legalPlanning(p)); fault != nil {
		t.Fatalf("soft desiderata must not fail the audit: %v", fault)
	}
}

func TestAuditPlanning_BureauViolation(t *testing.T) {
	p := auditProblem(t)
	p.Agents[2].Bureau = true
	// CC 在第 2 天执勤 M，而办公室专职默认只许 OFF
	expectFault(t, AuditPlanning(p, legalPlanning(p)))
}

func TestAuditPlanning_ConsecutiveViolation(t *testing.T) {
	p := auditProblem(t)
	p.Rules.MaxConsecutiveShifts = 3
	// BB 连续执勤 4 天
	expectFault(t, AuditPlanning(p, legalPlanning(p)))
}

func TestAuditPlanning_CalendarWeekHoursViolation(t *testing.T) {
	p := auditProblem(t)
	p.Rules.MaxHoursWeekCalendar = 20
	// BB 第一个日历周（周五至周日）3 × 8h = 24h
	expectFault(t, AuditPlanning(p, legalPlanning(p)))
}

func TestAuditPlanning_RollingHoursViolation(t *testing.T) {
	p := auditProblem(t)
	p.Rules.MaxHours7Rolling = 36
	// AA 整个 7 天窗口 5 × 8h = 40h
	expectFault(t, AuditPlanning(p, legalPlanning(p)))
}

func TestAuditPlanning_RestPairViolation(t *testing.T) {
	p := auditProblem(t)
	planning := legalPlanning(p)
	// 填掉 AA 仅有的一对相邻休息日
	planning.Set(0, 3, "M")
	expectFault(t, AuditPlanning(p, planning))
}

func TestAuditPlanning_ParityViolation(t *testing.T) {
	p := auditProblem(t)
	p.Agents[0].StrictParity = true
	// AA 执勤 5 天，奇数
	expectFault(t, AuditPlanning(p, legalPlanning(p)))
}

func TestAuditPlanning_CoverageViolation(t *testing.T) {
	p := auditProblem(t)
	planning := legalPlanning(p)
	// 第 6 天的 S 无人执勤
	planning.Set(1, 6, "OFF")
	expectFault(t, AuditPlanning(p, planning))
}
