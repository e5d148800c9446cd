// =============================================================================
// assistcore 命令行入口
// =============================================================================
// 运维 CLI：检查话题判定与 prompt 窗口、分词、缓存键
//
// 使用方法:
//
//	assistcore window --thread thread.json --message "..."   # 计算 prompt 窗口
//	assistcore tokenize "How did I sleep?"                    # 话题分词
//	assistcore key --tool summarize_metric --params '{...}'   # 缓存键
//	assistcore replay --log calls.json                        # 回放工具调用日志
//	assistcore version                                        # 显示版本信息
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vitalsight/assistcore/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "window":
		err = runWindow(args[1:], stdin, stdout, stderr)
	case "tokenize":
		err = runTokenize(args[1:], stdout, stderr)
	case "key":
		err = runKey(args[1:], stdout, stderr)
	case "replay":
		err = runReplay(args[1:], stdin, stdout, stderr)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "assistcore %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `assistcore - tool result cache and context selector tooling

Usage:
  assistcore <command> [options]

Commands:
  window    Select the prompt window for a new message
  tokenize  Print the topic tokens of a text
  key       Print the cache key of a tool call
  replay    Replay recorded tool calls through the result cache
  version   Show version information
  help      Show this help message

Options for 'window':
  --config <path>    Path to configuration file (YAML)
  --thread <path>    Thread messages as a JSON array ("-" for stdin)
  --message <text>   The new user message
  --model <name>     Tokenizer model, overrides prompt.tokenizer_model

Options for 'key':
  --config <path>       Path to configuration file (YAML)
  --tool <name>         Tool name
  --params <json>       Tool parameters
  --fingerprint <json>  Data fingerprint
  --strategy <name>     canonical or digest, overrides cache.key_strategy

Options for 'replay':
  --config <path>    Path to configuration file (YAML)
  --log <path>       Recorded calls as a JSON array ("-" for stdin, default)

Examples:
  assistcore window --thread thread.json --message "and my HRV?"
  cat thread.json | assistcore window --thread - --message "what about steps"
  assistcore tokenize "Let's compare last week's sleep"
  assistcore key --tool summarize_metric --params '{"metric":"hrv"}' --strategy digest
  assistcore replay --log calls.json
  assistcore version`)
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		// stdout carries command output
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}
