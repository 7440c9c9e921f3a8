package solver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
	"github.com/tourplan/tourplan/pkg/scheduler/constraint/builtin"
)

// buildContext 构造并编译一个小问题
func buildContext(t *testing.T, agents []model.Agent, startDay, endDay int, rules model.ContractRules, desiderata []model.Desideratum) *constraint.Context {
	t.Helper()
	h, err := model.NewHorizon(2025, startDay, endDay)
	if err != nil {
		t.Fatalf("NewHorizon: %v", err)
	}
	shifts := []model.ShiftType{
		{Code: "M", Start: 6, End: 14},
		{Code: "S", Start: 15, End: 23},
	}
	p := &model.Problem{
		Horizon:     h,
		Agents:      agents,
		Shifts:      shifts,
		ShiftByCode: map[string]model.ShiftType{"M": shifts[0], "S": shifts[1]},
		Rules:       rules,
		Desiderata:  desiderata,
		Coverage:    model.NewCoverage(),
		Seed:        1,
	}
	ctx, verrs := constraint.Compile(p)
	if len(verrs) != 0 {
		t.Fatalf("unexpected empty domains: %v", verrs)
	}
	return ctx
}

func solveOnce(t *testing.T, ctx *constraint.Context, seed int64) *Solution {
	t.Helper()
	manager := builtin.FromRules(ctx)
	engine := NewEngine(ctx, manager, NewScorer(ctx), seed, 0)
	return engine.Solve(context.Background(), time.Now().Add(5*time.Second))
}

func TestEngine_FeasibleOptimal(t *testing.T) {
	ctx := buildContext(t,
		[]model.Agent{{Code: "AA", WorkRate: 100}, {Code: "BB", WorkRate: 100}, {Code: "CC", WorkRate: 100}},
		10, 12,
		model.ContractRules{MinRestHours: 11, MaxConsecutiveShifts: 5},
		nil)
	sol := solveOnce(t, ctx, 1)

	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Status)
	}
	if !sol.Feasible() {
		t.Fatal("expected a feasible planning")
	}
	// 每天 M、S 均有人执勤
	for d := 0; d < 3; d++ {
		m, s := 0, 0
		for a := 0; a < 3; a++ {
			switch sol.Planning.Get(a, d) {
			case "M":
				m++
			case "S":
				s++
			}
		}
		if m == 0 || s == 0 {
			t.Errorf("day %d: mandatory coverage missing (M=%d S=%d)", d, m, s)
		}
	}
	if sol.Stats.Nodes == 0 {
		t.Error("expected node accounting")
	}
}

func TestEngine_Deterministic(t *testing.T) {
	run := func() *Solution {
		ctx := buildContext(t,
			[]model.Agent{{Code: "AA", WorkRate: 100}, {Code: "BB", WorkRate: 100}, {Code: "CC", WorkRate: 100}},
			10, 14,
			model.ContractRules{MinRestHours: 11, MaxConsecutiveShifts: 5},
			nil)
		return solveOnce(t, ctx, 7)
	}
	a, b := run(), run()
	if a.Score != b.Score {
		t.Fatalf("same seed produced different scores: %v vs %v", a.Score, b.Score)
	}
	for agent := 0; agent < 3; agent++ {
		for d := 0; d < 5; d++ {
			if a.Planning.Get(agent, d) != b.Planning.Get(agent, d) {
				t.Fatalf("same seed produced different plannings at (%d,%d)", agent, d)
			}
		}
	}
}

// 单人无法同时执勤 M 与 S：覆盖不可行
func TestEngine_InfeasibleCoverage(t *testing.T) {
	ctx := buildContext(t,
		[]model.Agent{{Code: "AA", WorkRate: 100}},
		10, 10,
		model.ContractRules{},
		nil)
	sol := solveOnce(t, ctx, 1)

	if sol.Status != StatusInfeasible {
		t.Fatalf("expected infeasible, got %s", sol.Status)
	}
	if sol.Feasible() {
		t.Fatal("infeasible result must not carry a planning")
	}
	if sol.Stats.DominantBlock() != constraint.BlockCoverage {
		t.Errorf("expected coverage block, got %s", sol.Stats.DominantBlock())
	}
}

// 硬意愿强制 S 后接 M：休息间隔 7 小时，违反 11 小时下限
func TestEngine_InfeasibleRest(t *testing.T) {
	ctx := buildContext(t,
		[]model.Agent{{Code: "XX", WorkRate: 100}, {Code: "YY", WorkRate: 100}},
		10, 11,
		model.ContractRules{MinRestHours: 11},
		[]model.Desideratum{
			{Agent: "XX", Day: 0, Codes: []string{"S"}, Priority: model.DesideratumHard},
			{Agent: "XX", Day: 1, Codes: []string{"M"}, Priority: model.DesideratumHard},
			{Agent: "YY", Day: 0, Codes: []string{"M"}, Priority: model.DesideratumHard},
			{Agent: "YY", Day: 1, Codes: []string{"S"}, Priority: model.DesideratumHard},
		})
	sol := solveOnce(t, ctx, 1)

	if sol.Status != StatusInfeasible {
		t.Fatalf("expected infeasible, got %s", sol.Status)
	}
	if sol.Stats.DominantBlock() != constraint.BlockRest {
		t.Errorf("expected rest block, got %s", sol.Stats.DominantBlock())
	}
}

// 截止时刻已过：立刻返回无解的预算状态，绝不崩溃
func TestEngine_ExpiredDeadline(t *testing.T) {
	ctx := buildContext(t,
		[]model.Agent{{Code: "AA", WorkRate: 100}, {Code: "BB", WorkRate: 100}},
		10, 16,
		model.ContractRules{MinRestHours: 11},
		nil)
	manager := builtin.FromRules(ctx)
	engine := NewEngine(ctx, manager, NewScorer(ctx), 1, 0)
	sol := engine.Solve(context.Background(), time.Now().Add(-time.Second))

	if sol.Status != StatusBudgetNoSolution {
		t.Fatalf("expected budget exhausted without solution, got %s", sol.Status)
	}
}

func TestEngine_Cancelled(t *testing.T) {
	ctx := buildContext(t,
		[]model.Agent{{Code: "AA", WorkRate: 100}, {Code: "BB", WorkRate: 100}},
		10, 16,
		model.ContractRules{MinRestHours: 11},
		nil)
	goCtx, cancel := context.WithCancel(context.Background())
	cancel()
	manager := builtin.FromRules(ctx)
	engine := NewEngine(ctx, manager, NewScorer(ctx), 1, 0)
	sol := engine.Solve(goCtx, time.Now().Add(5*time.Second))

	if sol.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", sol.Status)
	}
}

func TestParallelSolver_WinnerDeterministic(t *testing.T) {
	build := func() *constraint.Context {
		return buildContext(t,
			[]model.Agent{{Code: "AA", WorkRate: 100}, {Code: "BB", WorkRate: 100}, {Code: "CC", WorkRate: 100}},
			10, 14,
			model.ContractRules{MinRestHours: 11, MaxConsecutiveShifts: 5},
			nil)
	}
	run := func() *Solution {
		ctx := build()
		ps := NewParallelSolver(builtin.FromRules(ctx), NewScorer(ctx), 3)
		return ps.Solve(context.Background(), ctx, time.Now().Add(5*time.Second))
	}
	a, b := run(), run()
	if !a.Feasible() || !b.Feasible() {
		t.Fatal("expected feasible solutions")
	}
	if a.Score != b.Score {
		t.Fatalf("parallel solve not deterministic: %v vs %v", a.Score, b.Score)
	}
	for agent := 0; agent < 3; agent++ {
		for d := 0; d < 5; d++ {
			if a.Planning.Get(agent, d) != b.Planning.Get(agent, d) {
				t.Fatalf("parallel winners differ at (%d,%d)", agent, d)
			}
		}
	}
}

// 多工作实例共享同一原型上下文：全部副本必须在任何实例开始
// 写入网格之前取好，否则实例 1..k 会拿到缓存不一致的副本。
// 较大规模加 4 实例专门放大该窗口，竞态检测器构建下会直接报警。
func TestParallelSolver_ManyWorkersConsistent(t *testing.T) {
	agents := make([]model.Agent, 8)
	for i := range agents {
		agents[i] = model.Agent{Code: fmt.Sprintf("A%d", i), WorkRate: 100}
	}
	rules := model.ContractRules{MinRestHours: 11, MaxConsecutiveShifts: 5}
	ctx := buildContext(t, agents, 10, 30, rules, nil)
	ps := NewParallelSolver(builtin.FromRules(ctx), NewScorer(ctx), 4)
	sol := ps.Solve(context.Background(), ctx, time.Now().Add(5*time.Second))

	if !sol.Feasible() {
		t.Fatalf("expected a feasible planning, got %s", sol.Status)
	}
	// 胜出排班在全新上下文中重放后必须通过全部硬约束：
	// 若任一副本曾带着失真缓存搜索，这里会暴露出来
	fresh := buildContext(t, agents, 10, 30, rules, nil)
	fresh.LoadPlanning(sol.Planning)
	if ok, violations := builtin.FromRules(fresh).Evaluate(fresh); !ok {
		t.Fatalf("winning planning violates hard constraints on replay: %v", violations)
	}
}

func TestStats_DominantBlock(t *testing.T) {
	s := &Stats{Blocks: map[constraint.BlockClass]int64{
		constraint.BlockRest:     5,
		constraint.BlockCoverage: 9,
	}}
	if got := s.DominantBlock(); got != constraint.BlockCoverage {
		t.Errorf("expected coverage, got %s", got)
	}

	// 计数相等时按类别名升序决胜
	tie := &Stats{Blocks: map[constraint.BlockClass]int64{
		constraint.BlockRest:     3,
		constraint.BlockCoverage: 3,
	}}
	if got := tie.DominantBlock(); got != constraint.BlockCoverage {
		t.Errorf("expected name-ascending tiebreak, got %s", got)
	}
}

func TestScorer_SoftDesiderata(t *testing.T) {
	ctx := buildContext(t,
		[]model.Agent{{Code: "AA", WorkRate: 100}, {Code: "BB", WorkRate: 100}, {Code: "CC", WorkRate: 100}},
		10, 12,
		model.ContractRules{MinRestHours: 11},
		[]model.Desideratum{
			{Agent: "AA", Day: 1, Codes: []string{"OFF"}, Priority: model.DesideratumSoft},
		})
	scorer := NewScorer(ctx)

	m := ctx.CodeIndex("M")
	s := ctx.CodeIndex("S")
	fill := func(honour bool) float64 {
		for a := 0; a < ctx.NAgents; a++ {
			for d := 0; d < ctx.NDays; d++ {
				if ctx.Grid[a][d] != constraint.Unassigned {
					ctx.Unassign(a, d)
				}
			}
		}
		for d := 0; d < ctx.NDays; d++ {
			ctx.Assign(1, d, m)
			ctx.Assign(2, d, s)
			if d == 1 && !honour {
				ctx.Assign(0, d, m)
			} else {
				ctx.Assign(0, d, constraint.OffIdx)
			}
		}
		return scorer.Score(ctx)
	}

	honoured := fill(true)
	violated := fill(false)
	if honoured <= violated {
		t.Fatalf("honouring a soft desideratum must score higher: %v vs %v", honoured, violated)
	}
}
