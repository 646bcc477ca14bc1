package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	crd "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/use-agent/stylegrab/config"
	"github.com/use-agent/stylegrab/export"
	"github.com/use-agent/stylegrab/models"
)

// objectPutter is the slice of the S3 client the archive needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads scrape exports to an S3 bucket.
type Archive struct {
	client objectPutter
	cfg    config.StorageConfig
	log    *slog.Logger
	now    func() time.Time
}

// NewArchive connects to S3 using static credentials when they are configured
// and the default AWS credential chain otherwise. A custom endpoint (MinIO,
// LocalStack) switches to path-style addressing.
func NewArchive(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (*Archive, error) {
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			crd.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsCfg.WithBaseEndpoint(cfg.Endpoint))
	}

	awsConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})
	log.Info("s3 archive ready", "bucket", cfg.Bucket, "region", cfg.Region)
	return newArchive(client, cfg, log), nil
}

func newArchive(client objectPutter, cfg config.StorageConfig, log *slog.Logger) *Archive {
	return &Archive{client: client, cfg: cfg, log: log, now: time.Now}
}

// Save uploads the JSON and CSV exports of a result and returns where they went.
// An empty result still uploads an empty JSON array and an empty CSV object.
func (a *Archive) Save(ctx context.Context, res *models.ScrapeResult) (*models.ArchiveInfo, error) {
	jsonBody, err := export.MarshalJSON(res.Records)
	if err != nil {
		return nil, err
	}
	csvBody, err := export.MarshalCSV(res.Records)
	if err != nil {
		return nil, err
	}

	prefix := a.objectPrefix(res.URL)
	jsonKey := prefix + "/" + export.JSONFileName
	csvKey := prefix + "/" + export.CSVFileName

	if err := a.put(ctx, jsonKey, "application/json", jsonBody); err != nil {
		return nil, err
	}
	if err := a.put(ctx, csvKey, "text/csv", csvBody); err != nil {
		return nil, err
	}
	a.log.Debug("exports archived", "url", res.URL, "prefix", prefix)

	return &models.ArchiveInfo{
		JSON: a.objectURL(jsonKey),
		CSV:  a.objectURL(csvKey),
	}, nil
}

func (a *Archive) put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

// objectPrefix is <prefix>/<sha256(url)>/<unix seconds>.
func (a *Archive) objectPrefix(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return a.cfg.KeyPrefix + "/" + hex.EncodeToString(sum[:]) + "/" + strconv.FormatInt(a.now().Unix(), 10)
}

func (a *Archive) objectURL(key string) string {
	if a.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", a.cfg.Endpoint, a.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.cfg.Bucket, a.cfg.Region, key)
}
