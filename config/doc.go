// Package config 提供 assistcore 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 并可转换为缓存、prompt 窗口与话题判定各组件的配置。
package config
