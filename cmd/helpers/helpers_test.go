package helpers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zinc-sig/asksnap/cmd/config"
	"github.com/zinc-sig/asksnap/internal/output"
)

func TestParseOutputPath(t *testing.T) {
	tests := []struct {
		in         string
		wantLocal  string
		wantRemote string
	}{
		{"report.xlsx", "report.xlsx", "report.xlsx"},
		{"out/report.xlsx", "out/report.xlsx", "report.xlsx"},
		{"out/report.xlsx:reports/2024/report.xlsx", "out/report.xlsx", "reports/2024/report.xlsx"},
		{"report.xlsx:", "report.xlsx", "report.xlsx"},
		{`C:\reports\out.xlsx`, `C:\reports\out.xlsx`, filepath.Base(`C:\reports\out.xlsx`)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			local, remote := ParseOutputPath(tt.in)
			assert.Equal(t, tt.wantLocal, local)
			assert.Equal(t, tt.wantRemote, remote)
		})
	}
}

func TestScreenshotKey(t *testing.T) {
	assert.Equal(t, "run-1/question_3_20240101_000000.png",
		ScreenshotKey("run-1", filepath.Join("shots", "question_3_20240101_000000.png")))
}

func TestValidateRunFlags(t *testing.T) {
	assert.Error(t, ValidateRunFlags(&config.RunFlags{ConfigFile: "config.json"}))
	assert.Error(t, ValidateRunFlags(&config.RunFlags{QuestionsFile: "q.txt"}))
	assert.Error(t, ValidateRunFlags(&config.RunFlags{QuestionsFile: "q.txt", ConfigFile: "c.json", Parallel: true}))
	assert.NoError(t, ValidateRunFlags(&config.RunFlags{QuestionsFile: "q.txt", ConfigFile: "c.json", Parallel: true, Workers: 2}))
	assert.NoError(t, ValidateRunFlags(&config.RunFlags{QuestionsFile: "q.txt", ConfigFile: "c.json"}))
}

func defaultWebhookFlags() *config.WebhookConfig {
	return &config.WebhookConfig{
		Method:     "POST",
		AuthType:   "none",
		Timeout:    "30s",
		Retries:    3,
		RetryDelay: "1s",
	}
}

func TestBuildWebhookConfig_Precedence(t *testing.T) {
	t.Setenv("ASKSNAP_WEBHOOK_URL", "http://env.local/hook")
	t.Setenv("ASKSNAP_WEBHOOK_AUTH_TYPE", "bearer")

	file := filepath.Join(t.TempDir(), "hook.yaml")
	require.NoError(t, os.WriteFile(file, []byte("url: http://file.local/hook\ntimeout: 5s\n"), 0644))

	flags := defaultWebhookFlags()
	flags.ConfigFile = file
	flags.ConfigKV = []string{"retries=1"}

	conf, err := BuildWebhookConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, "http://file.local/hook", conf["url"])
	assert.Equal(t, "bearer", conf["auth_type"])
	assert.Equal(t, "5s", conf["timeout"])
	assert.EqualValues(t, 1, conf["retries"])

	flags.URL = "http://flag.local/hook"
	conf, err = BuildWebhookConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, "http://flag.local/hook", conf["url"])
}

func TestParseWebhook(t *testing.T) {
	hook, err := ParseWebhook(defaultWebhookFlags())
	require.NoError(t, err)
	assert.Nil(t, hook)
	assert.Empty(t, hook.URL())
	assert.NoError(t, hook.Send(context.Background(), EventRunCompleted, nil, nil))

	flags := defaultWebhookFlags()
	flags.URL = "http://hooks.local/run"
	hook, err = ParseWebhook(flags)
	require.NoError(t, err)
	assert.Equal(t, "http://hooks.local/run", hook.URL())

	flags.Timeout = "soon"
	_, err = ParseWebhook(flags)
	assert.Error(t, err)
}

func TestDeliverSummary_NoWebhook(t *testing.T) {
	summary := output.NewSummary("run-1", output.ModeSequential, 0, time.Now(), time.Now(), nil)
	DeliverSummary(context.Background(), nil, summary, nil)
	assert.False(t, summary.WebhookSent)
	assert.Empty(t, summary.WebhookError)
}

func TestBuildUploadConfig(t *testing.T) {
	t.Setenv("ASKSNAP_UPLOAD_CONFIG_BUCKET", "shots")

	conf, err := BuildUploadConfig(&config.UploadConfig{
		Config:   `{"endpoint": "http://localhost:9000", "bucket": "ignored"}`,
		ConfigKV: []string{"prefix=asksnap"},
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", conf["endpoint"])
	assert.Equal(t, "ignored", conf["bucket"])
	assert.Equal(t, "asksnap", conf["prefix"])

	var buf bytes.Buffer
	PrintUploadInfo(&buf, "minio", conf)
	assert.Contains(t, buf.String(), "endpoint:       http://localhost:9000")
	assert.Contains(t, buf.String(), "prefix:         asksnap")
}

func TestSetupUploadProvider_Disabled(t *testing.T) {
	provider, conf, err := SetupUploadProvider(context.Background(), &config.UploadConfig{})
	require.NoError(t, err)
	assert.Nil(t, provider)
	assert.Nil(t, conf)
}
