package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const maxKnowledgeBytes = 256 << 10

// S3API is the subset of the S3 client used for the knowledge corpus.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3KnowledgeStore decorates a Store so the knowledge corpus comes from an S3 object.
// The object is read on every call; a missing object falls back to the inner store.
type S3KnowledgeStore struct {
	Store
	client S3API
	bucket string
	key    string
}

func NewS3KnowledgeStore(inner Store, client S3API, bucket, key string) *S3KnowledgeStore {
	return &S3KnowledgeStore{Store: inner, client: client, bucket: bucket, key: key}
}

func (s *S3KnowledgeStore) BusinessKnowledge(ctx context.Context) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return s.Store.BusinessKnowledge(ctx)
		}
		return "", fmt.Errorf("catalog: s3 get %s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxKnowledgeBytes))
	if err != nil {
		return "", fmt.Errorf("catalog: read knowledge object: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
