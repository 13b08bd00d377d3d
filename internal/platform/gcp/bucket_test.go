package gcp

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketConfigFromEnvDefaultsToGCS(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	t.Setenv("CHAT_IMAGE_BUCKET", "chat-images")

	cfg, err := BucketConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageModeGCS, cfg.Mode)
	assert.True(t, cfg.Enabled())
}

func TestBucketConfigFromEnvEmulatorFallback(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")

	cfg, err := BucketConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageModeEmulator, cfg.Mode)
	assert.Equal(t, "http://fake-gcs:4443", cfg.EmulatorHost)
}

func TestBucketConfigFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE_EMULATOR_HOST", "")

	t.Setenv("OBJECT_STORAGE_MODE", "s3")
	_, err := BucketConfigFromEnv()
	require.Error(t, err)

	t.Setenv("OBJECT_STORAGE_MODE", "gcs_emulator")
	_, err = BucketConfigFromEnv()
	require.Error(t, err)

	t.Setenv("STORAGE_EMULATOR_HOST", "fake-gcs")
	_, err = BucketConfigFromEnv()
	require.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  BucketConfig
		want string
	}{
		{"gcs", BucketConfig{Mode: StorageModeGCS, Bucket: "b"}, "https://storage.googleapis.com/b/chat/x.jpg"},
		{"cdn", BucketConfig{Mode: StorageModeGCS, Bucket: "b", CDNDomain: "cdn.example.com"}, "https://cdn.example.com/chat/x.jpg"},
		{"base", BucketConfig{Mode: StorageModeGCS, Bucket: "b", PublicBaseURL: "http://localhost:4443"}, "http://localhost:4443/b/chat/x.jpg"},
		{"emulator", BucketConfig{Mode: StorageModeEmulator, Bucket: "b", EmulatorHost: "http://fake-gcs:4443"}, "http://fake-gcs:4443/storage/v1/b/b/o/chat%2Fx.jpg?alt=media"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, publicURL(tc.cfg, "/chat/x.jpg"))
		})
	}
}

func TestChatImageKey(t *testing.T) {
	u := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	tid := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "chat/"+u.String()+"/"+tid.String()+".png", ChatImageKey(u, tid, "image/png"))
	assert.Equal(t, "image/webp", ContentTypeForKey("a/b.WEBP"))
}

func TestBucketConfigCredentials(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/sa.json")

	cfg, err := BucketConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/etc/sa.json", cfg.Credentials)
	assert.Len(t, cfg.clientOptions(), 2)

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", `{"type":"service_account"}`)
	cfg, err = BucketConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, cfg.Credentials)

	emu := BucketConfig{Mode: StorageModeEmulator, Credentials: "/etc/sa.json"}
	assert.Len(t, emu.clientOptions(), 1)
	assert.Len(t, BucketConfig{Mode: StorageModeGCS}.clientOptions(), 1)
}
