package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/vitalsight/assistcore/types"
)

// TiktokenTokenizer 为 OpenAI 系列模型适配 tiktoken.
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	enc       *tiktoken.Tiktoken
	once      sync.Once
	initErr   error
}

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// 模型编码将模型名称映射到其 tiktoken 编码和上下文大小。
var modelEncodings = map[string]encodingInfo{
	"gpt-4.1":                {encoding: "o200k_base", maxTokens: 1047576},
	"gpt-4o":                 {encoding: "o200k_base", maxTokens: 128000},
	"gpt-4o-mini":            {encoding: "o200k_base", maxTokens: 128000},
	"o3":                     {encoding: "o200k_base", maxTokens: 200000},
	"o4-mini":                {encoding: "o200k_base", maxTokens: 200000},
	"gpt-4-turbo":            {encoding: "cl100k_base", maxTokens: 128000},
	"gpt-4":                  {encoding: "cl100k_base", maxTokens: 8192},
	"gpt-3.5-turbo":          {encoding: "cl100k_base", maxTokens: 16385},
	"text-embedding-3-large": {encoding: "cl100k_base", maxTokens: 8191},
	"text-embedding-3-small": {encoding: "cl100k_base", maxTokens: 8191},
}

// 未知模型默认使用 cl100k_base。
var defaultEncoding = encodingInfo{encoding: "cl100k_base", maxTokens: 8192}

func resolveEncoding(model string) encodingInfo {
	if info, ok := modelEncodings[model]; ok {
		return info
	}
	// 最长前缀匹配，避免 "gpt-4o-…" 落到 "gpt-4"。
	best, bestLen := defaultEncoding, 0
	for prefix, info := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = info, len(prefix)
		}
	}
	return best
}

// NewTiktokenTokenizer 为给定模型创建基于 tiktoken 的分词器.
// 编码数据在首次计数时才加载。
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	info := resolveEncoding(model)
	return &TiktokenTokenizer{
		model:     model,
		encoding:  info.encoding,
		maxTokens: info.maxTokens,
	}
}

// init lazily 初始化 tiktoken 编码(可以在第一次使用时下载数据).
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountMessages(messages []types.Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}

	total := 0
	for _, msg := range messages {
		// 每条消息的开销: <|start|>role\n content<|end|>\n
		total += types.MessageOverheadTokens
		total += len(t.enc.Encode(msg.Content, nil, nil))
		total += len(t.enc.Encode(string(msg.Role), nil, nil))
	}
	total += conversationOverheadTokens
	return total, nil
}

// Encoding returns the tiktoken encoding name in use.
func (t *TiktokenTokenizer) Encoding() string {
	return t.encoding
}

func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// RegisterOpenAITokenizers 为所有已知的 OpenAI 模型注册分词器。
func RegisterOpenAITokenizers() {
	for model := range modelEncodings {
		RegisterTokenizer(model, NewTiktokenTokenizer(model))
	}
}
