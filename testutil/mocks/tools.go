// MockToolExecutor 的工具执行测试模拟实现。
//
// 支持固定结果、错误注入、阻塞与调用计数。
package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vitalsight/assistcore/types"
)

// --- MockToolExecutor 结构 ---

// MockToolExecutor 是工具执行器的模拟实现
type MockToolExecutor struct {
	mu sync.Mutex

	results map[string]types.ToolResult
	errors  map[string]error
	gate    chan struct{}

	calls []types.ToolCall
	count atomic.Int64
}

// NewMockToolExecutor 创建新的 MockToolExecutor
func NewMockToolExecutor() *MockToolExecutor {
	return &MockToolExecutor{
		results: make(map[string]types.ToolResult),
		errors:  make(map[string]error),
	}
}

// WithResult 设置工具的固定返回结果
func (m *MockToolExecutor) WithResult(tool string, result types.ToolResult) *MockToolExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[tool] = result
	return m
}

// WithError 设置工具的固定返回错误
func (m *MockToolExecutor) WithError(tool string, err error) *MockToolExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[tool] = err
	return m
}

// WithGate makes Execute block until gate is closed.
func (m *MockToolExecutor) WithGate(gate chan struct{}) *MockToolExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
	return m
}

// Execute 执行工具
func (m *MockToolExecutor) Execute(ctx context.Context, call types.ToolCall) (types.ToolResult, error) {
	m.count.Add(1)

	m.mu.Lock()
	m.calls = append(m.calls, call)
	gate := m.gate
	err := m.errors[call.Name]
	result, ok := m.results[call.Name]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return types.ToolResult{}, ctx.Err()
		}
	}
	if err != nil {
		return types.ToolResult{}, err
	}
	if !ok {
		result = types.ToolResult{Tool: call.Name, Data: []byte(`{}`)}
	}
	return result, nil
}

// CallCount 返回 Execute 调用次数
func (m *MockToolExecutor) CallCount() int {
	return int(m.count.Load())
}

// Calls 返回调用记录副本
func (m *MockToolExecutor) Calls() []types.ToolCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.ToolCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// --- MockDataState ---

// MockDataState 返回可替换的 DataFingerprint
type MockDataState struct {
	mu sync.Mutex
	fp types.DataFingerprint
}

// NewMockDataState 创建新的 MockDataState
func NewMockDataState(fp types.DataFingerprint) *MockDataState {
	return &MockDataState{fp: fp}
}

// DataFingerprint 返回当前指纹
func (m *MockDataState) DataFingerprint(context.Context) types.DataFingerprint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fp
}

// Set 替换当前指纹，模拟数据集变化
func (m *MockDataState) Set(fp types.DataFingerprint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fp = fp
}
