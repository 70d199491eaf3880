package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source fetches manifests from the media bucket.
type S3Source struct {
	client ObjectGetter
	bucket string
}

// Compile-time interface check.
var _ Source = (*S3Source)(nil)

// NewS3Source creates an S3Source for bucket.
func NewS3Source(client ObjectGetter, bucket string) *S3Source {
	return &S3Source{client: client, bucket: bucket}
}

// Fetch reads the object at key. Missing keys map to ErrNotFound.
func (s *S3Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("Fetching manifest from S3")
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("S3 GetObject %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("S3 GetObject %s: %w", key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(io.LimitReader(result.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
