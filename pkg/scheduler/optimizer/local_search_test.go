package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/scheduler/constraint"
	"github.com/tourplan/tourplan/pkg/scheduler/constraint/builtin"
	"github.com/tourplan/tourplan/pkg/scheduler/solver"
)

func improveContext(t *testing.T) *constraint.Context {
	t.Helper()
	h, err := model.NewHorizon(2025, 10, 12)
	if err != nil {
		t.Fatalf("NewHorizon: %v", err)
	}
	shifts := []model.ShiftType{{Code: "M", Start: 6, End: 14}}
	p := &model.Problem{
		Horizon: h,
		Agents: []model.Agent{
			{Code: "AA", WorkRate: 100},
			{Code: "BB", WorkRate: 100},
			{Code: "CC", WorkRate: 100},
		},
		Shifts:      shifts,
		ShiftByCode: map[string]model.ShiftType{"M": shifts[0]},
		Rules:       model.ContractRules{MinRestHours: 11},
		Coverage:    model.NewCoverage(),
		Seed:        1,
	}
	ctx, verrs := constraint.Compile(p)
	if len(verrs) != 0 {
		t.Fatalf("unexpected empty domains: %v", verrs)
	}
	return ctx
}

// 从人人天天执勤的冗余排班出发：改进器应削减多余执勤
func TestImprover_RaisesScore(t *testing.T) {
	ctx := improveContext(t)
	m := ctx.CodeIndex("M")
	for a := 0; a < ctx.NAgents; a++ {
		for d := 0; d < ctx.NDays; d++ {
			ctx.Assign(a, d, m)
		}
	}

	manager := builtin.FromRules(ctx)
	scorer := solver.NewScorer(ctx)
	initial := scorer.Score(ctx)

	improver := NewImprover(manager, scorer, 1)
	final := improver.Improve(context.Background(), ctx, time.Now().Add(2*time.Second))

	if final < initial {
		t.Fatalf("improvement must never lower the score: %v -> %v", initial, final)
	}
	if final == initial {
		t.Fatal("expected at least one improving move on a redundant roster")
	}
	if final != scorer.Score(ctx) {
		t.Fatalf("returned score out of sync with the grid: %v vs %v", final, scorer.Score(ctx))
	}

	// 改进过程保持可行
	if !ctx.Complete() {
		t.Fatal("grid must stay complete")
	}
	if ok, violations := manager.Evaluate(ctx); !ok {
		t.Fatalf("improver broke feasibility: %v", violations)
	}
	for d := 0; d < ctx.NDays; d++ {
		if ctx.CovCount[d][m] == 0 {
			t.Fatalf("day %d lost its mandatory coverage", d)
		}
	}
}

// 同一种子的移动序列完全确定
func TestImprover_Deterministic(t *testing.T) {
	run := func() float64 {
		ctx := improveContext(t)
		m := ctx.CodeIndex("M")
		for a := 0; a < ctx.NAgents; a++ {
			for d := 0; d < ctx.NDays; d++ {
				ctx.Assign(a, d, m)
			}
		}
		manager := builtin.FromRules(ctx)
		scorer := solver.NewScorer(ctx)
		return NewImprover(manager, scorer, 7).Improve(context.Background(), ctx, time.Now().Add(2*time.Second))
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("same seed produced different scores: %v vs %v", a, b)
	}
}

// 过期截止时刻：立即返回当前得分，不做任何移动
func TestImprover_ExpiredDeadline(t *testing.T) {
	ctx := improveContext(t)
	m := ctx.CodeIndex("M")
	for a := 0; a < ctx.NAgents; a++ {
		for d := 0; d < ctx.NDays; d++ {
			ctx.Assign(a, d, m)
		}
	}
	scorer := solver.NewScorer(ctx)
	before := scorer.Score(ctx)
	got := NewImprover(builtin.FromRules(ctx), scorer, 1).Improve(context.Background(), ctx, time.Now().Add(-time.Second))
	if got != before {
		t.Fatalf("expired deadline must leave the grid untouched: %v vs %v", before, got)
	}
}
