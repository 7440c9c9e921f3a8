// Package model 定义排班求解引擎的核心数据模型
package model

import "fmt"

// 保留伪代码：不属于班次集合，但在排班矩阵中合法
const (
	// CodeOff 休息日，时长为零，任何单元格均可取
	CodeOff = "OFF"
	// CodeLeave 休假（congé），时长为零，计入目标工作量但不计入工时上限
	CodeLeave = "C"
)

// ShiftType 班次定义
// 起止时间以 24 小时制的小数小时表示（6.5 = 06:30）。
// 班次不跨午夜：跨午夜的服务必须拆分为两个有界时长的代码。
type ShiftType struct {
	Code  string  `json:"code"`
	Start float64 `json:"debut"`
	End   float64 `json:"fin"`
}

// Duration 返回班次时长（小时）
func (s ShiftType) Duration() float64 {
	return s.End - s.Start
}

// String 实现 fmt.Stringer
func (s ShiftType) String() string {
	return fmt.Sprintf("%s[%.2f-%.2f]", s.Code, s.Start, s.End)
}

// IsRestCode 判断代码是否为零时长的保留代码
func IsRestCode(code string) bool {
	return code == CodeOff || code == CodeLeave
}

// IsWorkedCode 判断代码是否计为工作日（非 OFF / 非 C）
func IsWorkedCode(code string) bool {
	return !IsRestCode(code)
}
