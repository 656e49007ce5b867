package mqpayload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxDeleteObjects is the S3 limit on keys per DeleteObjects request.
const maxDeleteObjects = 1000

// S3Store is a PayloadStore backed by a single S3 bucket.
// Objects are written under random UUID keys.
type S3Store struct {
	client s3iface.S3API
	bucket string
	logger logrus.FieldLogger
}

// NewS3Store returns a store writing to bucket through client.
func NewS3Store(client s3iface.S3API, bucket string, logger logrus.FieldLogger) (*S3Store, error) {
	if bucket == "" {
		return nil, ErrMissingBucket
	}

	if logger == nil {
		logger = defaultLogger()
	}

	return &S3Store{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

// Put implements PayloadStore.
func (store *S3Store) Put(ctx context.Context, payload []byte, contentEncoding string) (Locator, error) {
	key := uuid.NewString()
	store.logger.WithField("key", key).Debug("uploading payload")

	input := &s3.PutObjectInput{
		Bucket:      aws.String(store.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("text/plain"),
	}
	if contentEncoding != "" {
		input.ContentEncoding = aws.String(contentEncoding)
	}

	if _, err := store.client.PutObjectWithContext(ctx, input); err != nil {
		return Locator{}, transportError("s3 put object", err)
	}

	return Locator{Location: store.bucket, Key: key}, nil
}

// Get implements PayloadStore.
func (store *S3Store) Get(ctx context.Context, loc Locator) ([]byte, error) {
	store.logger.WithFields(logrus.Fields{"bucket": loc.Location, "key": loc.Key}).Debug("fetching payload")

	output, err := store.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Location),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, loc.Location, loc.Key)
		}
		return nil, transportError("s3 get object", err)
	}
	defer output.Body.Close()

	payload, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, transportError("s3 read object", err)
	}

	return payload, nil
}

// Delete implements PayloadStore.
func (store *S3Store) Delete(ctx context.Context, loc Locator) error {
	store.logger.WithFields(logrus.Fields{"bucket": loc.Location, "key": loc.Key}).Debug("deleting payload")

	_, err := store.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(loc.Location),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return transportError("s3 delete object", err)
	}

	return nil
}

// DeleteMany implements PayloadStore. Keys are sent in chunks of at most
// 1000; keys S3 reports as failed are returned as a single error.
func (store *S3Store) DeleteMany(ctx context.Context, location string, keys []string) error {
	var failed []string
	for start := 0; start < len(keys); start += maxDeleteObjects {
		end := start + maxDeleteObjects
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(key)})
		}

		store.logger.WithFields(logrus.Fields{"bucket": location, "count": len(objects)}).Debug("deleting payloads")
		output, err := store.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(location),
			Delete: &s3.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return transportError("s3 delete objects", err)
		}

		for _, e := range output.Errors {
			failed = append(failed, fmt.Sprintf("%s (%s)", aws.StringValue(e.Key), aws.StringValue(e.Code)))
		}
	}

	if len(failed) > 0 {
		return transportError("s3 delete objects", fmt.Errorf("%d keys not deleted from %s: %s",
			len(failed), location, strings.Join(failed, ", ")))
	}

	return nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}

	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
		return true
	}

	return false
}
