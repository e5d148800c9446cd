package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vitalsight/assistcore/types"
)

// Tokenizer 是统一的 token 计数接口。
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数,
	// 包括每条消息的开销（角色标记、分隔符等）。
	CountMessages(messages []types.Message) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// 会话结束开销
const conversationOverheadTokens = 3

// 全局分词器注册表.
var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
)

// RegisterTokenizer 为给定的模型名称注册分词器.
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// GetTokenizer 返回为给定模型注册的分词器。
// 精确匹配优先，否则取最长的前缀匹配（如 "gpt-4o-2024-08-06" 匹配 "gpt-4o"）。
func GetTokenizer(model string) (Tokenizer, error) {
	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	if t, ok := modelTokenizers[model]; ok {
		return t, nil
	}

	var (
		best    Tokenizer
		bestLen int
	)
	for prefix, t := range modelTokenizers {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = t, len(prefix)
		}
	}
	if best != nil {
		return best, nil
	}

	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator 返回该模型的注册分词器,
// 如果没有登记,则回到一般估计器。
func GetTokenizerOrEstimator(model string) Tokenizer {
	t, err := GetTokenizer(model)
	if err != nil {
		return NewEstimatorTokenizer(model, 0)
	}
	return t
}

// =============================================================================
// types.TokenCounter 适配
// =============================================================================

// Counter adapts a Tokenizer to types.TokenCounter. Counting errors (for
// example a tiktoken encoding that cannot be loaded) fall back to the
// estimator; the first failure is logged at warn.
type Counter struct {
	tokenizer Tokenizer
	fallback  *EstimatorTokenizer
	logger    *zap.Logger
	warnOnce  sync.Once
}

// AsCounter wraps t. A nil t yields a pure estimator counter.
func AsCounter(t Tokenizer, logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := NewEstimatorTokenizer("", 0)
	if t == nil {
		t = fallback
	}
	return &Counter{
		tokenizer: t,
		fallback:  fallback,
		logger:    logger.With(zap.String("component", "tokenizer")),
	}
}

// CountTokens implements types.TokenCounter.
func (c *Counter) CountTokens(text string) int {
	n, err := c.tokenizer.CountTokens(text)
	if err == nil {
		return n
	}
	c.warnOnce.Do(func() {
		c.logger.Warn("token counting failed, using estimator",
			zap.String("tokenizer", c.tokenizer.Name()),
			zap.Error(err))
	})
	n, _ = c.fallback.CountTokens(text)
	return n
}

// Name returns the wrapped tokenizer name.
func (c *Counter) Name() string {
	return c.tokenizer.Name()
}

var _ types.TokenCounter = (*Counter)(nil)
