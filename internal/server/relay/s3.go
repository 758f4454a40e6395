package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/imaging"
)

// Options configure the S3-compatible backend (MinIO in development).
type Options struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// s3API is the slice of *s3.Client the relay uses; tests substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Relay stores originals and thumbnails in one bucket under
// date-partitioned random keys.
type S3Relay struct {
	client s3API
	bucket string
}

// NewS3Relay builds a relay over an S3-compatible endpoint with static
// credentials.
func NewS3Relay(ctx context.Context, opts Options) (*S3Relay, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User,
			opts.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Relay{client: client, bucket: opts.Bucket}, nil
}

// storageKey yields a fresh date-partitioned object key.
func storageKey() string {
	d := time.Now()
	return fmt.Sprintf("images/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (r *S3Relay) Store(ctx context.Context, data []byte, contentType string) (string, string, error) {
	ref := storageKey()

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(ref),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("relay store: %w", err)
	}

	// Thumbnail failures fall back to the original reference: a record
	// without a small rendition is better than a failed upload.
	thumbRef := ref
	if thumb, terr := imaging.Thumbnail(data, common.ThumbnailDimension); terr == nil {
		thumbRef = ref + "_thumb"
		_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(r.bucket),
			Key:         aws.String(thumbRef),
			Body:        bytes.NewReader(thumb),
			ContentType: aws.String("image/jpeg"),
		})
		if err != nil {
			thumbRef = ref
		}
	}

	return ref, thumbRef, nil
}

func (r *S3Relay) Fetch(ctx context.Context, ref string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("relay fetch %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("relay read %s: %w", ref, err)
	}
	return data, nil
}

func (r *S3Relay) Delete(ctx context.Context, refs ...string) error {
	var errs []error
	for _, ref := range refs {
		_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(ref),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("relay delete %s: %w", ref, err))
		}
	}
	return errors.Join(errs...)
}
