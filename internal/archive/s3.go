package archive

import (
	"bytes"
	"context"
	"fmt"

	appconfig "libris/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Archiver stores rendered report documents for later retention. It is
// optional: a failure to archive never fails the report itself.
type Archiver interface {
	StoreReport(ctx context.Context, name string, pdf []byte) (string, error)
	TestConnection() error
}

type s3Archiver struct {
	s3     *s3.Client
	bucket string
	region string
	prefix string
}

// NewS3Archiver creates an archiver backed by an S3 bucket.
func NewS3Archiver(cfg appconfig.S3Config) (Archiver, error) {
	// Create custom credentials
	credProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credProvider),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg)

	return &s3Archiver{
		s3:     client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: cfg.Prefix,
	}, nil
}

// StoreReport uploads a rendered PDF and returns its object URL.
func (a *s3Archiver) StoreReport(ctx context.Context, name string, pdf []byte) (string, error) {
	key := fmt.Sprintf("%s/%s", a.prefix, name)

	uploader := manager.NewUploader(a.s3)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})

	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, key)

	log.Debug().
		Str("bucket", a.bucket).
		Str("key", key).
		Int("size", len(pdf)).
		Msg("Archived report")

	return url, nil
}

func (a *s3Archiver) TestConnection() error {
	// List a single object to validate credentials and bucket access
	_, err := a.s3.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", a.bucket).Msg("S3 connection test failed")
	}

	return err
}
