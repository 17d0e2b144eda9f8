package config

// Mining defaults.
const (
	DefaultMiningWorkers         = 0
	DefaultMiningLineStats       = false
	DefaultMiningFileStats       = false
	DefaultMiningObjectCacheSize = "850MiB"
	DefaultMiningBatchSize       = 100
)

// Identity defaults.
const (
	DefaultIdentityRulesPath  = ""
	DefaultIdentityOmitUnify  = false
	DefaultIdentityIgnoreBots = false
)

// Output defaults.
const (
	DefaultOutputFormat  = FormatText
	DefaultOutputShowPII = false
	DefaultOutputColor   = true
)

// Logging defaults.
const (
	DefaultLoggingLevel  = "warn"
	DefaultLoggingFormat = "text"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)
