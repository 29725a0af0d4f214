package filestorage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/yigit/ekklesia/internal/pkg/logger"
)

// S3Config holds the bucket settings
type S3Config struct {
	Bucket    string
	Region    string
	PublicURL string // optional CDN or bucket website prefix
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores files in an S3 bucket
type S3Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
}

// NewS3Storage loads the default AWS credential chain for the configured region
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Storage{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// Save uploads the image under subPath/yyyy/mm/uuid.ext
func (s *S3Storage) Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (string, error) {
	contentType, ext, err := DetectImage(fileHeader)
	if err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	now := time.Now()
	key := path.Join(
		strings.Trim(path.Clean("/"+subPath), "/"),
		fmt.Sprintf("%d/%02d", now.Year(), now.Month()),
		uuid.New().String()+ext,
	)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": fileHeader.Filename,
			"upload-time":       now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := s.publicURL + "/" + key
	logger.Ctx(ctx).Info().Str("bucket", s.bucket).Str("key", key).Msg("File uploaded to S3")
	return url, nil
}

// Delete removes the object behind fileURL
func (s *S3Storage) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}
	if !strings.HasPrefix(fileURL, s.publicURL+"/") {
		return fmt.Errorf("file %s is not stored in bucket %s", fileURL, s.bucket)
	}
	key := strings.TrimPrefix(fileURL, s.publicURL+"/")

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
