package helpers

import (
	"context"
	"fmt"
	"io"

	"github.com/zinc-sig/asksnap/cmd/config"
	appconfig "github.com/zinc-sig/asksnap/internal/config"
	"github.com/zinc-sig/asksnap/internal/upload"
)

// UploadEnvPrefix names the environment variables read for upload settings.
const UploadEnvPrefix = "ASKSNAP_UPLOAD_CONFIG"

// BuildUploadConfig builds upload configuration from all sources
// Precedence: env < file < json < kv
func BuildUploadConfig(cfg *config.UploadConfig) (map[string]any, error) {
	result, err := appconfig.BuildWithPrefix(UploadEnvPrefix, cfg.Config, cfg.ConfigKV, cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload config: %w", err)
	}
	if result == nil {
		return make(map[string]any), nil
	}
	return result, nil
}

// SetupUploadProvider creates and configures an upload provider. It returns
// a nil provider when no provider flag was given.
func SetupUploadProvider(ctx context.Context, cfg *config.UploadConfig) (upload.Provider, map[string]any, error) {
	if cfg.Provider == "" {
		return nil, nil, nil
	}

	uploadConf, err := BuildUploadConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	provider, err := upload.Setup(ctx, cfg.Provider, uploadConf)
	if err != nil {
		return nil, nil, err
	}
	return provider, uploadConf, nil
}

// PrintUploadInfo prints upload configuration in dry-run mode
func PrintUploadInfo(w io.Writer, providerName string, config map[string]any) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Upload Configuration")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Provider:       %s\n", providerName)

	if providerName == "minio" {
		for _, key := range []string{"endpoint", "bucket", "prefix"} {
			if v, ok := config[key]; ok && v != "" {
				fmt.Fprintf(w, "%-16s%v\n", key+":", v)
			}
		}
	}
	fmt.Fprintln(w, "----------------------------------------")
}
