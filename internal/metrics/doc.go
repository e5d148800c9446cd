// 版权所有 2026 VitalSight Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
工具结果缓存、工具执行与上下文选择三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，实现 cache.Recorder、
    cache.ExecutionRecorder 与 context.SelectionObserver。

# 主要能力

  - 缓存指标：命中、未命中、容量淘汰与拒绝缓存（oversize / encode），
    按 cache_type 分组。
  - 工具执行指标：按 tool/outcome 计数，耗时 Histogram。
  - 上下文选择指标：话题判定按 shift/reason 计数，窗口消息数
    Histogram 与丢弃消息计数。
*/
package metrics
