package constraint

import (
	"testing"

	"github.com/tourplan/tourplan/pkg/model"
)

// testProblem 构造 3 管制员、7 天、M/S 双班次的问题
func testProblem(t *testing.T) *model.Problem {
	t.Helper()
	h, err := model.NewHorizon(2025, 10, 16)
	if err != nil {
		t.Fatalf("NewHorizon: %v", err)
	}
	shifts := []model.ShiftType{
		{Code: "M", Start: 6, End: 14},
		{Code: "S", Start: 15, End: 23},
	}
	byCode := map[string]model.ShiftType{"M": shifts[0], "S": shifts[1]}
	return &model.Problem{
		Horizon: h,
		Agents: []model.Agent{
			{Code: "AA", WorkRate: 100},
			{Code: "BB", WorkRate: 100},
			{Code: "CC", WorkRate: 100},
		},
		Shifts:      shifts,
		ShiftByCode: byCode,
		Rules: model.ContractRules{
			MinRestHours:         11,
			MaxConsecutiveShifts: 5,
			SolverTimeLimit:      5,
		},
		Coverage: model.NewCoverage(),
		Seed:     1,
	}
}

func TestCompile_CodeTable(t *testing.T) {
	ctx, verrs := Compile(testProblem(t))
	if len(verrs) != 0 {
		t.Fatalf("unexpected empty-domain violations: %v", verrs)
	}
	want := []string{"OFF", "C", "M", "S"}
	if len(ctx.Codes) != len(want) {
		t.Fatalf("expected %d codes, got %v", len(want), ctx.Codes)
	}
	for i, code := range want {
		if ctx.Codes[i] != code {
			t.Errorf("code[%d]: expected %s, got %s", i, code, ctx.Codes[i])
		}
	}
	if ctx.Durations[OffIdx] != 0 || ctx.Durations[LeaveIdx] != 0 {
		t.Error("reserved codes must have zero duration")
	}
	if ctx.Durations[2] != 8 || ctx.Durations[3] != 8 {
		t.Errorf("expected 8h shifts, got %v", ctx.Durations)
	}
	if ctx.CodeIndex("S") != 3 || ctx.CodeIndex("X") != -1 {
		t.Error("CodeIndex lookup broken")
	}
}

// 默认域不含 C：休假只能经意愿进入
func TestCompile_DefaultDomainExcludesLeave(t *testing.T) {
	ctx, _ := Compile(testProblem(t))
	domain := ctx.Domains[0][0]
	want := []int8{OffIdx, 2, 3}
	if len(domain) != len(want) {
		t.Fatalf("expected domain %v, got %v", want, domain)
	}
	for i := range want {
		if domain[i] != want[i] {
			t.Fatalf("expected domain %v, got %v", want, domain)
		}
	}
}

func TestCompile_BureauDomain(t *testing.T) {
	p := testProblem(t)
	p.Agents[2].Bureau = true
	ctx, _ := Compile(p)
	for d := 0; d < ctx.NDays; d++ {
		domain := ctx.Domains[2][d]
		if len(domain) != 1 || domain[0] != OffIdx {
			t.Fatalf("bureau agent day %d: expected {OFF}, got %v", d, domain)
		}
	}
}

func TestCompile_HardDesideratumReplacesDomain(t *testing.T) {
	p := testProblem(t)
	p.Desiderata = []model.Desideratum{
		{Agent: "AA", Day: 2, Codes: []string{"C"}, Priority: model.DesideratumHard},
	}
	ctx, verrs := Compile(p)
	if len(verrs) != 0 {
		t.Fatalf("unexpected violations: %v", verrs)
	}
	domain := ctx.Domains[0][2]
	if len(domain) != 1 || domain[0] != LeaveIdx {
		t.Fatalf("expected {C}, got %v", domain)
	}
	// 其他单元格不受影响
	if len(ctx.Domains[0][1]) != 3 {
		t.Errorf("neighbouring domain touched: %v", ctx.Domains[0][1])
	}
}

// 同一单元格被多条硬意愿命中时取交集
func TestCompile_HardDesiderataIntersect(t *testing.T) {
	p := testProblem(t)
	p.Desiderata = []model.Desideratum{
		{Agent: "AA", Day: 0, Codes: []string{"M", "S"}, Priority: model.DesideratumHard},
		{Agent: "AA", Day: 0, Codes: []string{"S", "OFF"}, Priority: model.DesideratumHard},
	}
	ctx, verrs := Compile(p)
	if len(verrs) != 0 {
		t.Fatalf("unexpected violations: %v", verrs)
	}
	domain := ctx.Domains[0][0]
	if len(domain) != 1 || ctx.Codes[domain[0]] != "S" {
		t.Fatalf("expected intersection {S}, got %v", domain)
	}
}

func TestCompile_EmptyDomainReported(t *testing.T) {
	p := testProblem(t)
	p.Desiderata = []model.Desideratum{
		{Agent: "AA", Day: 1, Codes: []string{"M"}, Priority: model.DesideratumHard},
		{Agent: "AA", Day: 1, Codes: []string{"S"}, Priority: model.DesideratumHard},
	}
	_, verrs := Compile(p)
	if len(verrs) != 1 {
		t.Fatalf("expected one empty-domain violation, got %v", verrs)
	}
	v := verrs[0]
	if v.ConstraintType != TypeHardDesideratum || v.Agent != "AA" {
		t.Errorf("unexpected violation: %+v", v)
	}
	if v.Day != "11" {
		t.Errorf("expected day label 11, got %s", v.Day)
	}
}

func TestCompile_SoftWantMask(t *testing.T) {
	p := testProblem(t)
	p.Desiderata = []model.Desideratum{
		{Agent: "BB", Day: 3, Codes: []string{"M"}, Priority: model.DesideratumSoft},
	}
	ctx, _ := Compile(p)
	if ctx.SoftWant[1][3] != 1<<2 {
		t.Fatalf("expected soft mask for M, got %b", ctx.SoftWant[1][3])
	}
	// 软意愿不收缩域
	if len(ctx.Domains[1][3]) != 3 {
		t.Errorf("soft desideratum must not shrink domain: %v", ctx.Domains[1][3])
	}
}

func TestCompile_OptionalCoverage(t *testing.T) {
	p := testProblem(t)
	p.Coverage.SetOptional(4, "S")
	ctx, _ := Compile(p)
	if len(ctx.Mandatory[4]) != 1 || ctx.Codes[ctx.Mandatory[4][0]] != "M" {
		t.Errorf("expected only M mandatory on day 4, got %v", ctx.Mandatory[4])
	}
	if len(ctx.OptionalC[4]) != 1 || ctx.Codes[ctx.OptionalC[4][0]] != "S" {
		t.Errorf("expected S optional on day 4, got %v", ctx.OptionalC[4])
	}
	if len(ctx.Mandatory[3]) != 2 {
		t.Errorf("other days must keep both shifts mandatory, got %v", ctx.Mandatory[3])
	}
}

func TestCompile_CycleTables(t *testing.T) {
	p := testProblem(t)
	p.Agents[0].Cycles = []model.CyclePreference{
		{From: "M", To: "S", Priority: model.CycleGold},
		{From: "S", To: "OFF", Priority: model.CycleSilver},
	}
	ctx, _ := Compile(p)
	if ctx.CycleGold[0][2] != 3 {
		t.Errorf("expected gold M→S, got %d", ctx.CycleGold[0][2])
	}
	if ctx.CycleSilv[0][3] != OffIdx {
		t.Errorf("expected silver S→OFF, got %d", ctx.CycleSilv[0][3])
	}
	if ctx.CycleGold[1][2] != -1 {
		t.Error("other agents must have empty cycle table")
	}
}

func TestCompile_Targets(t *testing.T) {
	p := testProblem(t)
	p.Agents[1].WorkRate = 50
	ctx, _ := Compile(p)
	// 100%：ceil(7/2) = 4；50%：ceil(0.5*3.5) = 2
	if ctx.Targets[0] != 4 {
		t.Errorf("expected target 4 for full rate, got %d", ctx.Targets[0])
	}
	if ctx.Targets[1] != 2 {
		t.Errorf("expected target 2 for half rate, got %d", ctx.Targets[1])
	}
}
