package constraint

import (
	"sort"
	"sync"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
	}
}

// Register 注册约束
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 同类型约束只保留最新注册的一个
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，类型名升序保证注册顺序无关的确定性
	sort.Slice(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Type() < cj.Type()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// Snapshot 获取约束的只读快照，供单个搜索实例热路径使用
// 搜索期间不再加锁。
func (m *Manager) Snapshot() []Constraint {
	return m.GetAll()
}

// CheckAssignment 增量检查刚赋值的 (agent, day)
// 返回第一个被违反的约束类型；全部通过返回空串。
func CheckAssignment(constraints []Constraint, ctx *Context, agent, day int) Type {
	for _, c := range constraints {
		if !c.Check(ctx, agent, day) {
			return c.Type()
		}
	}
	return ""
}

// Evaluate 对填满的排班矩阵做完整审计
func (m *Manager) Evaluate(ctx *Context) (bool, []Violation) {
	constraints := m.GetAll()

	valid := true
	var all []Violation
	for _, c := range constraints {
		ok, violations := c.Evaluate(ctx)
		if !ok {
			valid = false
			all = append(all, violations...)
		}
	}
	return valid, all
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = m.constraints[:0]
}

// Count 返回已注册约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}
