package upload

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const bucketCheckTimeout = 10 * time.Second

// MinioProvider stores objects in a MinIO or S3 bucket.
type MinioProvider struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioProvider() *MinioProvider {
	return &MinioProvider{}
}

func (m *MinioProvider) Name() string {
	return "minio"
}

// Configure connects to the endpoint and checks that the bucket exists. An
// http:// or https:// scheme on the endpoint overrides the secure flag.
func (m *MinioProvider) Configure(ctx context.Context, config map[string]any) error {
	endpoint, ok := getStringValue(config, "endpoint")
	if !ok {
		return fmt.Errorf("minio: endpoint is required")
	}

	accessKey, ok := getStringValue(config, "access_key")
	if !ok {
		return fmt.Errorf("minio: access_key is required")
	}

	secretKey, ok := getStringValue(config, "secret_key")
	if !ok {
		return fmt.Errorf("minio: secret_key is required")
	}

	bucket, ok := getStringValue(config, "bucket")
	if !ok {
		return fmt.Errorf("minio: bucket is required")
	}

	secure := getBoolValue(config, "secure", true)
	host, schemeSecure, hasScheme, err := parseEndpoint(endpoint)
	if err != nil {
		return err
	}
	if hasScheme {
		secure = schemeSecure
	}

	region := getStringValueWithDefault(config, "region", "us-east-1")
	prefix := getStringValueWithDefault(config, "prefix", "")

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("minio: failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio: bucket %s does not exist", bucket)
	}

	m.client = client
	m.bucket = bucket
	m.prefix = prefix
	return nil
}

func parseEndpoint(endpoint string) (host string, secure, hasScheme bool, err error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, false, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", false, false, fmt.Errorf("minio: invalid endpoint URL %q", endpoint)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, true, nil
	case "https":
		return u.Host, true, true, nil
	default:
		return "", false, false, fmt.Errorf("minio: invalid endpoint URL %q: unsupported scheme %s", endpoint, u.Scheme)
	}
}

// ObjectName joins the configured prefix and key with forward slashes.
func (m *MinioProvider) ObjectName(key string) string {
	if m.prefix == "" {
		return key
	}
	return path.Join(m.prefix, key)
}

func (m *MinioProvider) Upload(ctx context.Context, obj Object) error {
	if m.client == nil {
		return fmt.Errorf("minio: provider not configured")
	}

	objectName := m.ObjectName(obj.Key)
	_, err := m.client.PutObject(ctx, m.bucket, objectName, obj.Reader, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to upload to %s: %w", objectName, err)
	}
	return nil
}

func getStringValue(config map[string]any, key string) (string, bool) {
	if val, ok := config[key]; ok {
		if str, ok := val.(string); ok && str != "" {
			return str, true
		}
	}
	return "", false
}

func getStringValueWithDefault(config map[string]any, key, defaultValue string) string {
	if val, ok := getStringValue(config, key); ok {
		return val
	}
	return defaultValue
}

func getBoolValue(config map[string]any, key string, defaultValue bool) bool {
	if val, ok := config[key]; ok {
		switch v := val.(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
