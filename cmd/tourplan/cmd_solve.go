package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/scheduler"
	"github.com/tourplan/tourplan/pkg/scheduler/report"
	"github.com/tourplan/tourplan/pkg/validator"
)

var (
	solveInput   string
	solveOutput  string
	solveWorkers int
	solveSeed    int64
	solveTimeout int
	solveQuiet   bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "求解一个排班请求",
	Long:  "读取 JSON 格式的排班请求文件并求解，结果以响应 JSON 输出。",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveInput, "input", "i", "", "请求文件路径，- 表示标准输入")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "输出文件路径，默认标准输出")
	solveCmd.Flags().IntVar(&solveWorkers, "workers", 0, "并行搜索实例数，0 = 自动")
	solveCmd.Flags().Int64Var(&solveSeed, "seed", 0, "随机种子，覆盖请求中的取值")
	solveCmd.Flags().IntVar(&solveTimeout, "time-limit", 0, "时间预算（秒），覆盖请求中的取值")
	solveCmd.Flags().BoolVarP(&solveQuiet, "quiet", "q", false, "关闭求解过程日志")
	solveCmd.MarkFlagRequired("input")
}

func runSolve(cmd *cobra.Command, args []string) error {
	level := "info"
	if solveQuiet {
		level = "error"
	}
	logger.Init(logger.Config{Level: level, Format: "console"})

	body, err := readInput(solveInput)
	if err != nil {
		return err
	}

	var req validator.OptimizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("解析请求失败: %w", err)
	}
	if solveSeed > 0 {
		req.Seed = solveSeed
	}

	problem, verrs := validator.ValidateRequest(&req)
	if verrs != nil && verrs.HasErrors() {
		return writeResult(report.ValidationFailure(verrs), true)
	}
	if solveTimeout > 0 {
		problem.Rules.SolverTimeLimit = solveTimeout
	}

	opts := scheduler.DefaultOptions()
	opts.Workers = solveWorkers
	sched := scheduler.New(opts)

	start := time.Now()
	sol, solveErr := sched.Solve(context.Background(), problem)
	if solveErr != nil {
		appErr, ok := solveErr.(*errors.AppError)
		if !ok {
			return solveErr
		}
		return writeResult(report.Failure(appErr), appErr.Code == errors.CodeSolverFault)
	}

	logger.Info().
		Dur("elapsed", time.Since(start)).
		Str("status", string(sol.Status)).
		Float64("score", sol.Score).
		Msg("求解完成")

	return writeResult(report.Success(problem, sol), false)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("读取标准输入失败: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取请求文件失败: %w", err)
	}
	return body, nil
}

// writeResult 输出响应 JSON
// fail 为真时以非零码退出，便于脚本判断。
func writeResult(resp *report.Response, fail bool) error {
	out := os.Stdout
	if solveOutput != "" {
		f, err := os.Create(solveOutput)
		if err != nil {
			return fmt.Errorf("创建输出文件失败: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("写出响应失败: %w", err)
	}
	if fail {
		os.Exit(1)
	}
	return nil
}
