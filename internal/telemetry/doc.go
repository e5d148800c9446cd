// 版权所有 2026 VitalSight Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 assistcore 提供 TracerProvider 和 MeterProvider。
// 禁用时使用 noop 实现，不连接任何外部服务。
package telemetry
