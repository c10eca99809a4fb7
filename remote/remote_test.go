package remote

import (
	"context"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/flashstor/flashstor"
	"github.com/kjk/flashstor/snapshot"
)

func TestKeyFor(t *testing.T) {
	h := &flashstor.HeaderInfo{
		Name:      [4]byte{'W', 'T', 'H', 'R'},
		ProductID: 771,
		BootCount: 12,
	}
	assert.Equal(t, "devices/771/WTHR-12.zst", KeyFor("devices", h, snapshot.Zstd))
	assert.Equal(t, "771/WTHR-12.bin", KeyFor("", h, snapshot.Raw))

	h = &flashstor.HeaderInfo{}
	assert.Equal(t, "p/0/dev-0.br", KeyFor("p", h, snapshot.Brotli))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("FLASHSTOR_S3_ACCESS", "access")
	t.Setenv("FLASHSTOR_S3_SECRET", "secret")
	t.Setenv("FLASHSTOR_S3_BUCKET", "images")
	t.Setenv("FLASHSTOR_S3_ENDPOINT", "localhost:9000")
	t.Setenv("FLASHSTOR_S3_REGION", "")
	t.Setenv("FLASHSTOR_S3_INSECURE", "true")
	c := ConfigFromEnv()
	assert.NoError(t, c.Validate())
	assert.Equal(t, "images", c.Bucket)
	assert.True(t, c.Insecure)
}

func TestConfigValidate(t *testing.T) {
	var nilConfig *Config
	assert.Error(t, nilConfig.Validate())

	c := &Config{Access: "a", Bucket: "b"}
	err := c.Validate()
	assert.Error(t, err)
	assert.Equal(t, "missing config fields: Secret, Endpoint", err.Error())

	_, err = New(context.Background(), c)
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/zstd", contentType(snapshot.Zstd))
	assert.Equal(t, "application/octet-stream", contentType(snapshot.Raw))
}
