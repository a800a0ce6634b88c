package attachments

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Resolver presigns GET and PUT requests against one bucket.
type S3Resolver struct {
	client *s3.S3
	bucket string
	expiry time.Duration
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, for S3-compatible stores
	Expiry          time.Duration
}

func NewS3Resolver(cfg S3Config) (*S3Resolver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: AWS_S3_BUCKET is not set")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &S3Resolver{client: s3.New(sess), bucket: cfg.Bucket, expiry: expiry}, nil
}

func (r *S3Resolver) SignedURL(_ context.Context, objectPath string) (string, error) {
	req, _ := r.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectPath),
	})
	url, err := req.Presign(r.expiry)
	if err != nil {
		return "", fmt.Errorf("s3 presign get: %w", err)
	}
	return url, nil
}

func (r *S3Resolver) SignedUploadURL(_ context.Context, objectPath string) (string, error) {
	req, _ := r.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectPath),
	})
	url, err := req.Presign(r.expiry)
	if err != nil {
		return "", fmt.Errorf("s3 presign put: %w", err)
	}
	return url, nil
}
