package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vitalsight/assistcore/internal/telemetry"
	"github.com/vitalsight/assistcore/llm/cache"
	"github.com/vitalsight/assistcore/types"
)

// =============================================================================
// 🔁 replay 命令
// =============================================================================
// 将记录的工具调用日志按顺序回放到缓存执行器，观察命中率与淘汰。
// 后端不做真实计算，直接返回日志里的结果。

// replayEntry is one recorded tool invocation.
type replayEntry struct {
	Call        types.ToolCall        `json:"call"`
	Fingerprint types.DataFingerprint `json:"fingerprint"`
	Result      types.ToolResult      `json:"result"`
	Error       string                `json:"error,omitempty"`
}

type replayLine struct {
	Tool      string `json:"tool"`
	FromCache bool   `json:"from_cache"`
	Key       string `json:"key,omitempty"`
	Error     string `json:"error,omitempty"`
}

type replayOutput struct {
	Calls []replayLine `json:"calls"`
	Stats cache.Stats  `json:"stats"`
}

// replayBackend answers from the log entry currently being replayed.
type replayBackend struct {
	mu      sync.Mutex
	current replayEntry
}

func (b *replayBackend) set(e replayEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = e
}

func (b *replayBackend) Execute(_ context.Context, call types.ToolCall) (types.ToolResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current.Error != "" {
		return types.ToolResult{}, fmt.Errorf("recorded failure: %s", b.current.Error)
	}
	result := b.current.Result
	if result.Tool == "" {
		result.Tool = call.Name
	}
	return result, nil
}

func (b *replayBackend) DataFingerprint(context.Context) types.DataFingerprint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Fingerprint
}

func runReplay(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	logPath := fs.String("log", "-", `Recorded calls as a JSON array ("-" for stdin)`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	entries, err := readReplayLog(*logPath, stdin)
	if err != nil {
		return err
	}

	execCfg, err := cfg.Cache.ExecutorConfig()
	if err != nil {
		return err
	}
	execCfg.TracerProvider = providers.TracerProvider()

	storeOpts := []cache.StoreOption{cache.WithLogger(logger)}
	if c := metricsCollector(cfg.Metrics, logger); c != nil {
		storeOpts = append(storeOpts, cache.WithRecorder(c))
		execCfg.Recorder = c
	}
	holder := cache.NewHolder(logger)
	store := holder.Get(cfg.Cache.StoreConfig(), storeOpts...)

	backend := &replayBackend{}
	exec := cache.NewCachingToolExecutor(backend, backend, store, execCfg, logger)

	out := replayOutput{Calls: make([]replayLine, 0, len(entries))}
	ctx := context.Background()
	for _, e := range entries {
		backend.set(e)
		res, err := exec.Execute(ctx, e.Call)
		line := replayLine{Tool: e.Call.Name, FromCache: res.FromCache, Key: res.Key}
		if err != nil {
			line.Error = err.Error()
		}
		out.Calls = append(out.Calls, line)
	}
	out.Stats = store.Stats()

	return writeJSON(stdout, out)
}

func readReplayLog(path string, stdin io.Reader) ([]replayEntry, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read replay log: %w", err)
	}
	var entries []replayEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "replay log must be a JSON array of calls").
			WithCause(err)
	}
	return entries, nil
}
