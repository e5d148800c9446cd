package context

// Default thresholds for topic shift detection.
const (
	// ShortAckMaxTokens is the largest content-token count treated as a
	// short acknowledgement ("yeah, please", "ok thanks").
	ShortAckMaxTokens = 2

	// MinOverlap is the fraction of new-message tokens that must also
	// appear in recent thread text for the message to count as the same
	// topic.
	MinOverlap = 0.2
)

// ShiftInput is the input of a topic shift decision.
type ShiftInput struct {
	NewMessage       string
	RecentThreadText string
}

// DetectorConfig tunes a ShiftDetector.
type DetectorConfig struct {
	ShortAckMaxTokens int     `json:"short_ack_max_tokens" yaml:"short_ack_max_tokens"`
	MinOverlap        float64 `json:"min_overlap" yaml:"min_overlap"`
}

// DefaultDetectorConfig returns the default thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ShortAckMaxTokens: ShortAckMaxTokens,
		MinOverlap:        MinOverlap,
	}
}

// ShiftAnalysis explains a decision.
type ShiftAnalysis struct {
	NewTokens    TokenSet `json:"-"`
	ThreadTokens TokenSet `json:"-"`
	Content      int      `json:"content"` // new tokens that are not acknowledgements
	Shared       int      `json:"shared"`
	Overlap      float64  `json:"overlap"`
	ShortAck     bool     `json:"short_ack"`
	NoHistory    bool     `json:"no_history"`
	Shift        bool     `json:"shift"`
}

// Reason names the rule that decided the analysis.
func (a ShiftAnalysis) Reason() string {
	switch {
	case a.ShortAck:
		return "short_ack"
	case a.NoHistory:
		return "no_history"
	case a.Shift:
		return "low_overlap"
	default:
		return "overlap"
	}
}

// ShiftDetector decides whether a new message leaves the recent topic
// using lexical overlap. It is stateless and safe for concurrent use.
type ShiftDetector struct {
	config DetectorConfig
}

// NewShiftDetector creates a detector. A negative ShortAckMaxTokens or a
// MinOverlap outside (0, 1] falls back to the default.
func NewShiftDetector(config DetectorConfig) *ShiftDetector {
	if config.ShortAckMaxTokens < 0 {
		config.ShortAckMaxTokens = ShortAckMaxTokens
	}
	if config.MinOverlap <= 0 || config.MinOverlap > 1 {
		config.MinOverlap = MinOverlap
	}
	return &ShiftDetector{config: config}
}

// Config returns the effective thresholds.
func (d *ShiftDetector) Config() DetectorConfig {
	return d.config
}

// Analyze tokenizes both texts and applies, in order: a message with at
// most ShortAckMaxTokens content tokens (acknowledgement words excluded)
// continues, an empty thread continues, otherwise the message shifts when
// overlap = |new ∩ thread| / |new| < MinOverlap.
func (d *ShiftDetector) Analyze(in ShiftInput) ShiftAnalysis {
	a := ShiftAnalysis{
		NewTokens:    Tokenize(in.NewMessage),
		ThreadTokens: Tokenize(in.RecentThreadText),
	}

	a.Content = a.NewTokens.ContentCount()
	if a.Content <= d.config.ShortAckMaxTokens {
		a.ShortAck = true
		return a
	}
	if a.ThreadTokens.Len() == 0 {
		a.NoHistory = true
		return a
	}

	a.Shared = a.NewTokens.Intersect(a.ThreadTokens)
	a.Overlap = float64(a.Shared) / float64(a.NewTokens.Len())
	a.Shift = a.Overlap < d.config.MinOverlap
	return a
}

// IsTopicShift reports whether in.NewMessage starts a new topic.
func (d *ShiftDetector) IsTopicShift(in ShiftInput) bool {
	return d.Analyze(in).Shift
}

var defaultDetector = NewShiftDetector(DefaultDetectorConfig())

// IsTopicShift uses the default thresholds.
func IsTopicShift(in ShiftInput) bool {
	return defaultDetector.IsTopicShift(in)
}
