package helpers

import (
	"fmt"

	"github.com/zinc-sig/asksnap/cmd/config"
)

// ValidateRunFlags checks flag combinations cobra cannot express
func ValidateRunFlags(flags *config.RunFlags) error {
	if flags.QuestionsFile == "" {
		return fmt.Errorf("required flag 'questions' not set")
	}
	if flags.ConfigFile == "" {
		return fmt.Errorf("config path must not be empty")
	}
	if flags.Parallel && flags.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", flags.Workers)
	}
	return nil
}

// ValidateReportFlags checks report flags before any file is touched
func ValidateReportFlags(flags *config.ReportFlags) error {
	if flags.QuestionsFile == "" {
		return fmt.Errorf("questions file must not be empty")
	}
	if flags.Output == "" {
		return fmt.Errorf("output file must not be empty")
	}
	return nil
}
