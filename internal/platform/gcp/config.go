package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/companion-backend/internal/platform/envutil"
)

type StorageMode string

const (
	StorageModeGCS      StorageMode = "gcs"
	StorageModeEmulator StorageMode = "gcs_emulator"
)

type BucketConfig struct {
	Mode          StorageMode
	EmulatorHost  string
	Bucket        string
	CDNDomain     string
	PublicBaseURL string
	// Credentials is inline service-account JSON or a path to one. Empty
	// falls back to application default credentials.
	Credentials string
}

// BucketConfigFromEnv resolves the chat image bucket. An empty bucket name
// means image storage is disabled. STORAGE_EMULATOR_HOST without an explicit
// mode selects the emulator.
func BucketConfigFromEnv() (BucketConfig, error) {
	cfg := BucketConfig{
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/"),
		Bucket:        envutil.String("CHAT_IMAGE_BUCKET", ""),
		CDNDomain:     envutil.String("CHAT_IMAGE_CDN_DOMAIN", ""),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
		Credentials:   strings.TrimSpace(envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")),
	}
	if cfg.Credentials == "" {
		cfg.Credentials = strings.TrimSpace(envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""))
	}
	raw := strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", ""))
	switch StorageMode(raw) {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeEmulator
		}
	case StorageModeGCS, StorageModeEmulator:
		cfg.Mode = StorageMode(raw)
	default:
		return cfg, fmt.Errorf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", raw, StorageModeGCS, StorageModeEmulator)
	}
	return cfg, cfg.Validate()
}

func (c BucketConfig) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

func (c BucketConfig) clientOptions() []option.ClientOption {
	switch {
	case c.Mode == StorageModeEmulator:
		return []option.ClientOption{option.WithoutAuthentication()}
	case c.Credentials == "":
		return []option.ClientOption{option.WithScopes(storageScope)}
	case strings.HasPrefix(c.Credentials, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.Credentials)), option.WithScopes(storageScope)}
	default:
		return []option.ClientOption{option.WithCredentialsFile(c.Credentials), option.WithScopes(storageScope)}
	}
}

func (c BucketConfig) Validate() error {
	if c.PublicBaseURL != "" && !absoluteURL(c.PublicBaseURL) {
		return fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q", c.PublicBaseURL)
	}
	if c.Mode != StorageModeEmulator {
		return nil
	}
	if c.EmulatorHost == "" {
		return fmt.Errorf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", StorageModeEmulator)
	}
	if !absoluteURL(c.EmulatorHost) {
		return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", c.EmulatorHost)
	}
	return nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
