// Package tokenizer 提供统一的 Token 计数接口，
// 支持 tiktoken 精确计数与 CJK 估算器，用于 prompt 窗口的 Token 预算管理。
//
// 通过 AsCounter 可将任意 Tokenizer 适配为 types.TokenCounter，
// 计数失败时自动回退到估算器。
package tokenizer
