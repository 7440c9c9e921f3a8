// Package constraint 定义约束接口、编译器与排班上下文
package constraint

// Type 约束类型标识
type Type string

const (
	TypeMinRest             Type = "min_rest_between_shifts"
	TypeMaxConsecutiveWork  Type = "max_consecutive_work_days"
	TypeCalendarWeekHours   Type = "max_hours_week_calendar"
	TypeRollingWeekHours    Type = "max_hours_7_rolling"
	TypeConsecutiveRestPair Type = "two_consecutive_rest_days"
	TypeStrictParity        Type = "strict_parity"
	TypeMandatoryCoverage   Type = "mandatory_coverage"
	TypeHardDesideratum     Type = "hard_desideratum"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// BlockClass 阻塞类别：不可行诊断按此归类
type BlockClass string

const (
	BlockCoverage        BlockClass = "coverage"
	BlockRest            BlockClass = "rest"
	BlockHourCap         BlockClass = "hour-cap"
	BlockConsecutive     BlockClass = "consecutive"
	BlockHardDesideratum BlockClass = "hard-desideratum"
	BlockParity          BlockClass = "parity"
)

// Violation 约束违反详情
type Violation struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	Agent          string `json:"agent,omitempty"`
	Day            string `json:"day,omitempty"`
	Message        string `json:"message"`
}

// Constraint 硬约束接口
// Check 为增量检查：在 (agent, day) 刚被赋值后调用，只审视
// 作用域已确定的部分；返回 false 表示该局部赋值不可延伸为可行解。
// Evaluate 为完整审计：针对填满的排班矩阵逐项复核。
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Block 返回该约束所属的阻塞诊断类别
	Block() BlockClass

	// Check 增量检查刚赋值的单元格
	Check(ctx *Context, agent, day int) bool

	// Evaluate 完整审计整个排班矩阵
	Evaluate(ctx *Context) (bool, []Violation)
}
