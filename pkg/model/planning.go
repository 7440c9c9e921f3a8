package model

// Planning 完整排班结果：(agent, day) → 代码 的全函数
// 由搜索引擎在求解过程中增量构造，定稿后不可变地交给结果格式化层。
type Planning struct {
	AgentCodes []string   `json:"agents"`
	DayLabels  []string   `json:"days"`  // 年内序号的字符串形式
	Cells      [][]string `json:"cells"` // [agent][day]
}

// NewPlanning 创建空白排班结果
func NewPlanning(agents []Agent, h *Horizon) *Planning {
	p := &Planning{
		AgentCodes: make([]string, len(agents)),
		DayLabels:  make([]string, h.Len()),
		Cells:      make([][]string, len(agents)),
	}
	for i, a := range agents {
		p.AgentCodes[i] = a.Code
		p.Cells[i] = make([]string, h.Len())
	}
	for d := 0; d < h.Len(); d++ {
		p.DayLabels[d] = h.Label(d)
	}
	return p
}

// Get 返回 (agent, day) 的代码
func (p *Planning) Get(agent, day int) string {
	return p.Cells[agent][day]
}

// Set 写入 (agent, day) 的代码
func (p *Planning) Set(agent, day int, code string) {
	p.Cells[agent][day] = code
}

// Complete 检查是否每个单元格都恰好填有一个代码
func (p *Planning) Complete() bool {
	for _, row := range p.Cells {
		for _, code := range row {
			if code == "" {
				return false
			}
		}
	}
	return true
}

// WorkedDays 统计某管制员的工作日数（非 OFF / 非 C）
func (p *Planning) WorkedDays(agent int) int {
	count := 0
	for _, code := range p.Cells[agent] {
		if IsWorkedCode(code) {
			count++
		}
	}
	return count
}

// Row 返回某管制员一行的响应形式：Agent 列 + 按日键的代码
func (p *Planning) Row(agent int) map[string]string {
	row := make(map[string]string, len(p.DayLabels)+1)
	row["Agent"] = p.AgentCodes[agent]
	for d, label := range p.DayLabels {
		row[label] = p.Cells[agent][d]
	}
	return row
}
