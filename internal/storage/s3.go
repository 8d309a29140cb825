package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tournament-ledger/internal/config"
)

// ProofStore keeps uploaded payment proofs and hands back an opaque reference
// that is stored verbatim on the transaction.
type ProofStore interface {
	Save(ctx context.Context, userID uint, filename, contentType string, body io.Reader) (string, error)
}

type S3ProofStore struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3ProofStore builds a store for any S3 compatible endpoint. A custom
// endpoint (R2, MinIO) switches the client to path-style addressing.
func NewS3ProofStore(ctx context.Context, cfg config.StorageConfig) (*S3ProofStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			// third-party S3 implementations reject the default flexible checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		if cfg.Endpoint != "" {
			base = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		}
	}

	return &S3ProofStore{client: client, bucket: cfg.Bucket, publicBaseURL: base}, nil
}

func proofKey(userID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("proofs/%d/%s%s", userID, uuid.NewString(), ext)
}

// Save uploads the proof and returns its public URL.
func (s *S3ProofStore) Save(ctx context.Context, userID uint, filename, contentType string, body io.Reader) (string, error) {
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, body); err != nil {
		return "", fmt.Errorf("failed to read proof: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("proof file is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := proofKey(userID, filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload proof: %w", err)
	}

	zap.L().Info("Payment proof stored", zap.Uint("user_id", userID), zap.String("key", key))
	return fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
}
