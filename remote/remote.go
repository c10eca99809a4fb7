package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/kjk/flashstor/flashstor"
	"github.com/kjk/flashstor/snapshot"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config for S3-compatible storage of device snapshots
type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local minio
	Insecure     bool
	RequestTrace io.Writer
}

// ConfigFromEnv reads config from FLASHSTOR_S3_* environment variables
func ConfigFromEnv() *Config {
	insecure, _ := strconv.ParseBool(os.Getenv("FLASHSTOR_S3_INSECURE"))
	return &Config{
		Access:   os.Getenv("FLASHSTOR_S3_ACCESS"),
		Secret:   os.Getenv("FLASHSTOR_S3_SECRET"),
		Bucket:   os.Getenv("FLASHSTOR_S3_BUCKET"),
		Endpoint: os.Getenv("FLASHSTOR_S3_ENDPOINT"),
		Region:   os.Getenv("FLASHSTOR_S3_REGION"),
		Insecure: insecure,
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	var missing []string
	if c.Access == "" {
		missing = append(missing, "Access")
	}
	if c.Secret == "" {
		missing = append(missing, "Secret")
	}
	if c.Bucket == "" {
		missing = append(missing, "Bucket")
	}
	if c.Endpoint == "" {
		missing = append(missing, "Endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

type Client struct {
	Client *minio.Client
	config *Config
	Bucket string
}

// New connects to the bucket and checks that it exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &Client{
		Client: mc,
		config: config,
		Bucket: c.Bucket,
	}, nil
}

// KeyFor returns remote key for a snapshot of a device with header h:
// ${prefix}/${productID}/${name}-${bootCount}${ext}
func KeyFor(prefix string, h *flashstor.HeaderInfo, kind snapshot.Kind) string {
	name := h.NameString()
	if name == "" {
		name = "dev"
	}
	fileName := fmt.Sprintf("%s-%d%s", name, h.BootCount, kind.Ext())
	return path.Join(prefix, strconv.Itoa(int(h.ProductID)), fileName)
}

func contentType(kind snapshot.Kind) string {
	if kind == snapshot.Zstd {
		return "application/zstd"
	}
	return "application/octet-stream"
}

// Push uploads a device snapshot d, compressed based on extension of key
func (c *Client) Push(ctx context.Context, key string, d []byte) (minio.UploadInfo, error) {
	kind := snapshot.KindFromPath(key)
	enc, err := snapshot.Encode(d, kind)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	opts := minio.PutObjectOptions{
		ContentType: contentType(kind),
		UserMetadata: map[string]string{
			"device-len": strconv.Itoa(len(d)),
		},
	}
	r := bytes.NewReader(enc)
	return c.Client.PutObject(ctx, c.Bucket, key, r, int64(len(enc)), opts)
}

// Pull downloads and decompresses a snapshot uploaded with Push
func (c *Client) Pull(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.Client.GetObject(ctx, c.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	d, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("download '%s': %w", key, err)
	}
	return snapshot.Decode(d, snapshot.KindFromPath(key))
}

func (c *Client) Exists(ctx context.Context, key string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, key, minio.StatObjectOptions{})
	return err == nil
}

// List returns keys of snapshots under prefix
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	var res []string
	for oi := range c.Client.ListObjects(ctx, c.Bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		res = append(res, oi.Key)
	}
	return res, nil
}

func (c *Client) Remove(ctx context.Context, key string) error {
	return c.Client.RemoveObject(ctx, c.Bucket, key, minio.RemoveObjectOptions{})
}
