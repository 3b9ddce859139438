package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/cryptox"
)

// S3Config selects the bucket endpoint and static credentials.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store is the ObjectStore implementation over an S3-compatible backend.
type S3Store struct {
	client *s3.Client
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO serves buckets on the path, not a subdomain.
		o.UsePathStyle = true
	})

	return &S3Store{client: client}, nil
}

func (s *S3Store) Upload(ctx context.Context, path, bucket string, bucketKey []byte, progress Progress) (string, error) {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", common.ErrIO, path, err)
	}

	objectID := StorageKey()
	sealed, err := cryptox.SealBlob(plaintext, cryptox.DeriveObjectKey(bucketKey, objectID))
	if err != nil {
		return "", fmt.Errorf("seal blob: %w", err)
	}

	body := newProgressReader(bytes.NewReader(sealed), int64(len(sealed)), progress)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectID),
		Body:   body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", common.ErrAborted, ctx.Err())
		}
		return "", fmt.Errorf("%w: put %s: %v", common.ErrTransfer, objectID, err)
	}

	return objectID, nil
}

func (s *S3Store) Download(ctx context.Context, objectID, bucket string, bucketKey []byte, destPath string, downloadProgress, decryptProgress Progress) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectID),
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", common.ErrAborted, ctx.Err())
		}
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("%w: %s", common.ErrRemoteMissing, objectID)
		}
		return fmt.Errorf("%w: get %s: %v", common.ErrTransfer, objectID, err)
	}
	defer out.Body.Close()

	var total int64
	if out.ContentLength != nil {
		total = *out.ContentLength
	}
	sealed, err := io.ReadAll(newProgressReader(out.Body, total, downloadProgress))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", common.ErrAborted, ctx.Err())
		}
		return fmt.Errorf("%w: read %s: %v", common.ErrTransfer, objectID, err)
	}

	plaintext, err := cryptox.OpenBlob(sealed, cryptox.DeriveObjectKey(bucketKey, objectID))
	if err != nil {
		return fmt.Errorf("open blob %s: %w", objectID, err)
	}
	if decryptProgress != nil {
		decryptProgress(1)
	}

	// write-then-rename keeps a cancelled download from leaving a truncated
	// file at the destination
	tmp := destPath + ".part"
	if err := os.WriteFile(tmp, plaintext, 0o660); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrIO, tmp, err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		return fmt.Errorf("%w: rename %s: %v", common.ErrIO, destPath, err)
	}
	return nil
}
