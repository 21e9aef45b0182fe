package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Operator struct {
	// Client is the S3 client.
	Client *s3.Client
	// Bucket is the name of the S3 bucket.
	Bucket string
	// PublicEndpoint is the public endpoint of the S3 bucket.
	PublicEndpoint *url.URL
}

func NewS3Operator(client *s3.Client, bucket, publicBaseURL string) (*S3Operator, error) {
	const op = "NewS3Operator"
	publicEndpoint, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse public base URL, err=%w", op, err)
	}
	return &S3Operator{Client: client, Bucket: bucket, PublicEndpoint: publicEndpoint}, nil
}

// Upload stores fileContent under path and returns the public URL of
// the object.
func (s *S3Operator) Upload(ctx context.Context, path, contentType string, fileContent []byte) (string, error) {
	const op = "Upload"
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(fileContent),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to upload file to S3, err=%w", op, err)
	}
	uri := *s.PublicEndpoint
	uri.Path = path
	return uri.String(), nil
}

// Delete removes the object behind a public URL previously returned by
// Upload. Callers doing cleanup treat the returned error as advisory.
func (s *S3Operator) Delete(ctx context.Context, publicURL string) error {
	const op = "Delete"
	key, err := s.KeyFromPublicURL(publicURL)
	if err != nil {
		return fmt.Errorf("[%s] Fail to resolve object key, err=%w", op, err)
	}
	_, err = s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("[%s] Fail to delete file from S3, err=%w", op, err)
	}
	return nil
}

// KeyFromPublicURL recovers the object key from a public URL. The URL
// must live under the operator's public endpoint.
func (s *S3Operator) KeyFromPublicURL(publicURL string) (string, error) {
	const op = "KeyFromPublicURL"
	uri, err := url.Parse(publicURL)
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to parse public URL, err=%w", op, err)
	}
	if uri.Host != s.PublicEndpoint.Host {
		return "", fmt.Errorf("[%s] URL host %q does not match public endpoint %q", op, uri.Host, s.PublicEndpoint.Host)
	}
	key := strings.TrimPrefix(uri.Path, "/")
	if key == "" {
		return "", fmt.Errorf("[%s] URL %q has no object key", op, publicURL)
	}
	return key, nil
}
