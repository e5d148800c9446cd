package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	agentctx "github.com/vitalsight/assistcore/agent/context"
	"github.com/vitalsight/assistcore/config"
	"github.com/vitalsight/assistcore/internal/metrics"
	"github.com/vitalsight/assistcore/internal/telemetry"
	"github.com/vitalsight/assistcore/llm/cache"
	"github.com/vitalsight/assistcore/llm/tokenizer"
	"github.com/vitalsight/assistcore/types"
)

// promauto registers on the default registry, so one collector per process.
var (
	collectorOnce sync.Once
	collector     *metrics.Collector
)

func metricsCollector(cfg config.MetricsConfig, logger *zap.Logger) *metrics.Collector {
	if !cfg.Enabled {
		return nil
	}
	collectorOnce.Do(func() {
		collector = metrics.NewCollector(cfg.Namespace, logger)
	})
	return collector
}

// =============================================================================
// 🪟 window 命令
// =============================================================================

// windowOutput is the JSON document printed by the window command.
type windowOutput struct {
	ConversationID string          `json:"conversation_id"`
	SameTopic      bool            `json:"same_topic"`
	Reason         string          `json:"reason"`
	Overlap        float64         `json:"overlap"`
	TurnBudget     int             `json:"turn_budget"`
	Dropped        int             `json:"dropped"`
	Chars          int             `json:"chars"`
	Tokens         int             `json:"tokens,omitempty"`
	Tokenizer      string          `json:"tokenizer,omitempty"`
	Messages       []types.Message `json:"messages"`
}

func runWindow(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("window", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	threadPath := fs.String("thread", "", `Thread messages as a JSON array ("-" for stdin)`)
	message := fs.String("message", "", "The new user message")
	model := fs.String("model", "", "Tokenizer model, overrides prompt.tokenizer_model")
	conversationID := fs.String("conversation", "", "Conversation id for logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *message == "" {
		return fmt.Errorf("--message is required")
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

	thread, err := readThread(*threadPath, stdin)
	if err != nil {
		return err
	}

	opts := make([]agentctx.SelectorOption, 0, 2)
	if c := metricsCollector(cfg.Metrics, logger); c != nil {
		opts = append(opts, agentctx.WithObserver(c))
	}
	tokenizerModel := cfg.Prompt.TokenizerModel
	if *model != "" {
		tokenizerModel = *model
	}
	var counter *tokenizer.Counter
	if tokenizerModel != "" {
		tokenizer.RegisterOpenAITokenizers()
		counter = tokenizer.AsCounter(tokenizer.GetTokenizerOrEstimator(tokenizerModel), logger)
		opts = append(opts, agentctx.WithTokenCounter(counter))
	}

	selector := agentctx.NewSelector(cfg.SelectorConfig(), logger, opts...)

	id := *conversationID
	if id == "" {
		id = uuid.NewString()
	}
	ctx := types.WithConversationID(context.Background(), id)
	sel := selector.Select(ctx, thread, types.Message{Role: types.RoleUser, Content: *message})

	out := windowOutput{
		ConversationID: id,
		SameTopic:      sel.SameTopic,
		Reason:         sel.Analysis.Reason(),
		Overlap:        sel.Analysis.Overlap,
		TurnBudget:     sel.Window.TurnBudget,
		Dropped:        sel.Window.Dropped,
		Chars:          sel.Window.Chars,
		Tokens:         sel.Window.Tokens,
		Messages:       sel.Messages,
	}
	if counter != nil {
		out.Tokenizer = counter.Name()
	}
	return writeJSON(stdout, out)
}

func readThread(path string, stdin io.Reader) ([]types.Message, error) {
	if path == "" {
		return nil, nil
	}
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
		return nil, fmt.Errorf("read thread: %w", err)
	}
	var thread []types.Message
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "thread must be a JSON array of messages").
			WithCause(err)
	}
	return thread, nil
}

// =============================================================================
// 🔤 tokenize 命令
// =============================================================================

func runTokenize(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("tokenize", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	against := fs.String("against", "", "Recent thread text to run the topic shift check against")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")

	if !fs.Changed("against") {
		for _, tok := range agentctx.Tokenize(text).Sorted() {
			fmt.Fprintln(stdout, tok)
		}
		return nil
	}

	a := agentctx.NewShiftDetector(agentctx.DefaultDetectorConfig()).Analyze(agentctx.ShiftInput{
		NewMessage:       text,
		RecentThreadText: *against,
	})
	return writeJSON(stdout, struct {
		Tokens       []string `json:"tokens"`
		ThreadTokens []string `json:"thread_tokens"`
		Shared       int      `json:"shared"`
		Overlap      float64  `json:"overlap"`
		Shift        bool     `json:"shift"`
		Reason       string   `json:"reason"`
	}{
		Tokens:       a.NewTokens.Sorted(),
		ThreadTokens: a.ThreadTokens.Sorted(),
		Shared:       a.Shared,
		Overlap:      a.Overlap,
		Shift:        a.Shift,
		Reason:       a.Reason(),
	})
}

// =============================================================================
// 🔑 key 命令
// =============================================================================

func runKey(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("key", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	tool := fs.String("tool", "", "Tool name")
	params := fs.String("params", "null", "Tool parameters as JSON")
	fingerprint := fs.String("fingerprint", "", "Data fingerprint as JSON")
	strategyName := fs.String("strategy", "", "Key strategy: canonical or digest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tool == "" {
		return fmt.Errorf("--tool is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	name := cfg.Cache.KeyStrategy
	if *strategyName != "" {
		name = *strategyName
	}
	strategy, err := cache.NewKeyStrategy(name)
	if err != nil {
		return err
	}

	if !json.Valid([]byte(*params)) {
		return types.NewError(types.ErrInvalidRequest, "--params is not valid JSON")
	}
	var fp types.DataFingerprint
	if *fingerprint != "" {
		if err := json.Unmarshal([]byte(*fingerprint), &fp); err != nil {
			return types.NewError(types.ErrInvalidRequest, "--fingerprint is not a data fingerprint").
				WithCause(err)
		}
	}

	call := types.ToolCall{Name: *tool, Params: json.RawMessage(*params)}
	fmt.Fprintln(stdout, strategy.Key(call, fp))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
