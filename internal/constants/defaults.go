package constants

import "time"

// Selection defaults
const (
	DefaultHoursToKeep   = 24
	DefaultCaseSensitive = false
	DefaultWholeWords    = true
)

// Deletion defaults
const (
	DefaultBatchSize           = 100
	DefaultDelayBetweenBatches = 2 * time.Second
)

// DefaultMetricsNamespace prefixes every exported prometheus metric
const DefaultMetricsNamespace = "tgpurge"

// MaxErrorsPrinted limits the error list in the printed summary
const MaxErrorsPrinted = 10

// MaxChatsPrinted limits per-chat listings in printed summaries
const MaxChatsPrinted = 10

// GuideExamplesPerChat and GuideExampleLength shape the markdown deletion guide
const (
	GuideExamplesPerChat = 3
	GuideExampleLength   = 100
)

// PreviewTextLength truncates message text in logs
const PreviewTextLength = 50
