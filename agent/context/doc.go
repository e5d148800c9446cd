// 版权所有 2026 VitalSight Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 context 为健康数据助手选择每轮发送给 LLM 的对话历史。

# 概述

新用户消息到达时，先判断它是否延续最近的话题，再据此决定
附带多少历史消息。话题延续时带较长的历史，话题切换时只带
少量最近消息，既保留上下文又节省 token 预算。

# 核心模型

  - Tokenize：NFKC 归一化、大小写折叠、去除标点与停用词，
    输出 TokenSet（长度小于 MinTokenLength 的词被丢弃，
    保留 hrv / ldl 等三字母缩写）
  - ShiftDetector：基于词汇重叠的话题切换判定。短确认
    （内容词不超过 ShortAckMaxTokens）与空历史一律视为延续；
    否则重叠率低于 MinOverlap 视为切换
  - WindowAssembler：按话题判定选择轮数上限 K，取最近 K 条
    消息，超出 MaxChars（以及可选的 MaxTokens）时从最旧的
    消息整条丢弃，最后追加新消息。从不截断消息内容
  - Selector：串联以上步骤，记录 zap 日志并通知
    SelectionObserver（通常是 Prometheus 采集器）

# 不变量

  - 结果的最后一个元素总是新用户消息
  - 结果长度不超过 K + 1
  - 输入的线程切片不会被修改

# 使用方式

	sel := context.NewSelector(context.DefaultSelectorConfig(), logger,
		context.WithObserver(collector))
	out := sel.Select(ctx, thread, types.NewUserMessage(text))
	// out.Messages 即发送给模型的消息序列
*/
package context
