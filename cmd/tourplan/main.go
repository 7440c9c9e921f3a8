// TourPlan 命令行工具
// 离线求解排班问题：读入 JSON 请求文件，输出排班响应。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tourplan",
	Short: "TourPlan 排班求解器",
	Long:  "基于约束回溯搜索的塔台排班求解器，支持离线求解与结算统计。",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tourplan v%s\n", Version)
		fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
