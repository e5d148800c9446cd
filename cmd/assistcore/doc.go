// Copyright (c) VitalSight Authors.
// Licensed under the MIT License.

/*
Package main 提供 assistcore 运维命令行程序入口。

# 概述

cmd/assistcore 用于离线检查上下文选择与缓存键：给定一段对话线程与
新消息，输出话题判定和最终 prompt 窗口；对任意文本输出话题分词；
对工具调用输出缓存键；回放工具调用日志以观察缓存命中率。配置按 默认值 → YAML → 环境变量 加载，日志使用 zap。

# 子命令

  - window    — 读取 JSON 线程，运行 Selector，输出窗口与判定原因
  - tokenize  — 输出话题 token，可用 --against 对比最近线程文本
  - key       — 按 canonical 或 digest 策略输出缓存键
  - replay    — 将记录的工具调用回放到 CachingToolExecutor，输出命中与统计
  - version   — 版本信息，Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
