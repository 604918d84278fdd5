package config

// UploadConfig holds upload-related flags
type UploadConfig struct {
	Provider   string
	Config     string
	ConfigKV   []string
	ConfigFile string
}

// WebhookConfig holds webhook-related flags
type WebhookConfig struct {
	// Direct configuration flags
	URL        string
	Method     string
	AuthType   string
	AuthToken  string
	Timeout    string
	Retries    int
	RetryDelay string

	// Alternative configuration methods
	Config     string   // JSON string configuration
	ConfigKV   []string // Key-value pairs
	ConfigFile string   // Path to JSON/YAML config file
}

// RunFlags holds flags of the run command
type RunFlags struct {
	QuestionsFile string
	ConfigFile    string
	Parallel      bool
	Workers       int
	OutputDir     string
	Set           []string
	JSON          bool
	DryRun        bool
}

// ReportFlags holds flags of the report command
type ReportFlags struct {
	QuestionsFile  string
	ScreenshotsDir string
	Output         string
	Lang           string
}
