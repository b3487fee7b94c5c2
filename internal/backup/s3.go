package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"concatfile-go/internal/concat"
	"concatfile-go/internal/config"
)

// S3Store keeps content-addressed backups in an S3 bucket under
// <prefix>/content/<checksum>. The layout mirrors DirStore, so
// references are interchangeable between the two.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ concat.BackupStore = (*S3Store)(nil)

// NewS3Store creates an S3-backed store. Credentials come from the
// default AWS chain; setting s3_access_key_id/s3_secret_access_key in
// the config overrides it with static credentials.
func NewS3Store(ctx context.Context, cfg config.BackupConfig) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   strings.Trim(cfg.S3Prefix, "/"),
	}, nil
}

func (s *S3Store) key(ref string) string {
	if s.prefix == "" {
		return path.Join("content", ref)
	}
	return path.Join(s.prefix, "content", ref)
}

// Put uploads content under its checksum. An object that already exists
// is not re-uploaded. Any HEAD failure, not-found included, falls
// through to the upload, which reports the real error if one persists.
func (s *S3Store) Put(dest string, r io.Reader, now time.Time) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading backup content: %w", err)
	}
	ref := concat.Checksum(data)
	key := s.key(ref)
	ctx := context.Background()

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return ref, nil
	}

	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}); err != nil {
		return "", fmt.Errorf("uploading backup to s3://%s/%s: %w", s.bucket, key, err)
	}
	return ref, nil
}

func (s *S3Store) Get(ref string) (io.ReadCloser, error) {
	key := s.key(ref)
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("backup not found: %s", ref)
		}
		return nil, fmt.Errorf("fetching backup from s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

func (s *S3Store) Name() string { return "s3" }

func (s *S3Store) Encrypted() bool { return false }
