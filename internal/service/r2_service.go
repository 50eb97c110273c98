package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/polaritylab/crosspost/configs"
)

// Storage keeps uploaded media files and serves them at public URLs the
// platforms can pull from.
type Storage interface {
	Upload(ctx context.Context, key string, file []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type R2Service struct {
	config cfg.R2
	client *s3.Client
}

func NewR2Service(ctx context.Context, r2 cfg.R2) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})

	return &R2Service{config: r2, client: client}, nil
}

func (r *R2Service) Upload(ctx context.Context, key string, file []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	_, err := r.client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *R2Service) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *R2Service) PublicURL(key string) string {
	return strings.TrimRight(r.config.PublicURL, "/") + "/" + key
}
