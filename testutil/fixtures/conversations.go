// Package fixtures 提供测试数据工厂：对话线程与工具调用样例。
package fixtures

import (
	"fmt"
	"time"

	"github.com/vitalsight/assistcore/types"
)

var baseTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// UserMessage 创建用户消息
func UserMessage(content string) types.Message {
	return types.Message{Role: types.RoleUser, Content: content, Timestamp: baseTime}
}

// AssistantMessage 创建助手消息
func AssistantMessage(content string) types.Message {
	return types.Message{Role: types.RoleAssistant, Content: content, Timestamp: baseTime}
}

// SleepThread is a short conversation about sleep, HRV and resting heart rate.
func SleepThread() []types.Message {
	return []types.Message{
		UserMessage("How has my sleep been over the last two weeks?"),
		AssistantMessage("Your average sleep duration was 6h 40m, with deep sleep around 18 percent."),
		UserMessage("Is my HRV trending up or down?"),
		AssistantMessage("Your HRV has risen from 48 ms to 55 ms, which usually tracks better recovery."),
		UserMessage("And what about my resting heart rate during sleep?"),
		AssistantMessage("Resting heart rate during sleep dropped from 58 to 55 bpm over the same period."),
	}
}

// AlternatingThread builds n messages alternating user/assistant, oldest
// first, with timestamps one minute apart.
func AlternatingThread(n int) []types.Message {
	msgs := make([]types.Message, n)
	for i := range msgs {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		msgs[i] = types.Message{
			Role:      role,
			Content:   fmt.Sprintf("message %d about recovery metrics", i),
			Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
		}
	}
	return msgs
}

// SummarizeCall returns a summarize_metric call for metric over days.
func SummarizeCall(metric string, days int) types.ToolCall {
	return types.ToolCall{
		Name: types.ToolSummarizeMetric,
		Params: map[string]any{
			"metric": metric,
			"window": map[string]any{"days": days, "aggregate": "mean"},
		},
	}
}

// Fingerprint returns a data fingerprint over n records.
func Fingerprint(n int) types.DataFingerprint {
	start := baseTime.AddDate(0, 0, -30)
	end := baseTime
	return types.DataFingerprint{
		Mode:        "apple_health",
		RecordCount: n,
		MetricCount: 12,
		RangeStart:  &start,
		RangeEnd:    &end,
	}
}
