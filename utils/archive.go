package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"

	"github.com/erezos/flappyjet-backend-sub006/config"
	"github.com/erezos/flappyjet-backend-sub006/models"
)

// ObjectPutter is the slice of the S3 client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes final tournament standings to an S3-compatible bucket
// (R2, MinIO or S3).
type S3Archiver struct {
	client  ObjectPutter
	bucket  string
	baseURL string
}

type archiveDocument struct {
	Tournament *models.Tournament           `json:"tournament"`
	Standings  []models.LeaderboardSnapshot `json:"standings"`
	Prizes     []models.Prize               `json:"prizes"`
	ArchivedAt time.Time                    `json:"archived_at"`
}

func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
		}
	}
	return NewS3ArchiverWithClient(client, cfg.Bucket, baseURL), nil
}

func NewS3ArchiverWithClient(client ObjectPutter, bucket, baseURL string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

// ArchiveKey is tournaments/<slug>-<id>/final.json.
func ArchiveKey(t *models.Tournament) string {
	return fmt.Sprintf("tournaments/%s-%s/final.json", slug.Make(t.Name), t.ID)
}

// ArchiveStandings uploads the standings document and returns its public URL.
func (a *S3Archiver) ArchiveStandings(ctx context.Context, t *models.Tournament, standings []models.LeaderboardSnapshot, prizes []models.Prize) (string, error) {
	body, err := json.Marshal(archiveDocument{
		Tournament: t,
		Standings:  standings,
		Prizes:     prizes,
		ArchivedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode standings: %w", err)
	}

	key := ArchiveKey(t)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload standings: %w", err)
	}
	return fmt.Sprintf("%s/%s", a.baseURL, key), nil
}
