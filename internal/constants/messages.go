package constants

// Run mode banners
const (
	MsgDryRunBanner = "🔍 DRY RUN MODE - no messages will actually be deleted\n"
	MsgLiveBanner   = "⚠️  LIVE MODE - messages will be permanently deleted!\n"
	MsgConfirm      = "Are you sure you want to proceed? (yes/no): "
	MsgCancelled    = "Operation cancelled.\n"
)

// Pipeline progress
const (
	MsgCutoff          = "⏰ Cutoff time: %s (keeping last %d hours)\n"
	MsgKeywords        = "🔎 Keywords: %s\n"
	MsgNoKeywordFilter = "🔍 No keyword filter - all old messages are eligible\n"
	MsgCandidates      = "🗑️  Messages to delete: %d in %d chats\n"
	MsgNoCandidates    = "✅ No messages found to delete.\n"
	MsgPreviewSaved    = "📄 Preview saved to: %s\n"
	MsgErrorsSaved     = "📄 Error report saved to: %s\n"
	MsgGuideSaved      = "📝 Deletion guide saved to: %s\n"
	MsgInterrupted     = "⏹  Run interrupted: %v\n"
)

// Errors
const (
	MsgConfigLoadError       = "❌ Failed to load configuration: %v\n"
	MsgConfigValidationError = "❌ Configuration validation failed:\n"
	MsgConfigValidatePrefix  = "  - %v\n"
	MsgConfigValid           = "✅ Configuration is valid\n"
	MsgRunFailed             = "❌ Run failed: %v\n"
)
