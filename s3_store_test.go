package mqpayload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API

	objects     map[string][]byte
	putInput    *s3.PutObjectInput
	deleteInput *s3.DeleteObjectInput
	deleteBatch []*s3.DeleteObjectsInput
	failedKeys  map[string]bool
	getErr      error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), failedKeys: make(map[string]bool)}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.putInput = input
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, input *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleteInput = input
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectsWithContext(_ aws.Context, input *s3.DeleteObjectsInput, _ ...request.Option) (*s3.DeleteObjectsOutput, error) {
	f.deleteBatch = append(f.deleteBatch, input)
	output := &s3.DeleteObjectsOutput{}
	for _, object := range input.Delete.Objects {
		if f.failedKeys[aws.StringValue(object.Key)] {
			output.Errors = append(output.Errors, &s3.Error{Key: object.Key, Code: aws.String("AccessDenied")})
		}
	}
	return output, nil
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(newFakeS3(), "", quietLogger())
	assert.ErrorIs(t, err, ErrMissingBucket)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestS3Store_PutGet(t *testing.T) {
	client := newFakeS3()
	store, err := NewS3Store(client, "payload-bucket", quietLogger())
	require.NoError(t, err)

	loc, err := store.Put(context.Background(), []byte("large payload"), "")
	require.NoError(t, err)
	assert.Equal(t, "payload-bucket", loc.Location)
	_, err = uuid.Parse(loc.Key)
	assert.NoError(t, err)
	assert.Equal(t, "text/plain", aws.StringValue(client.putInput.ContentType))
	assert.Nil(t, client.putInput.ContentEncoding)

	payload, err := store.Get(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "large payload", string(payload))

	_, err = store.Put(context.Background(), []byte("x"), "zstd")
	require.NoError(t, err)
	assert.Equal(t, "zstd", aws.StringValue(client.putInput.ContentEncoding))
}

func TestS3Store_GetErrors(t *testing.T) {
	client := newFakeS3()
	store, err := NewS3Store(client, "payload-bucket", quietLogger())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), Locator{Location: "payload-bucket", Key: "missing"})
	assert.ErrorIs(t, err, ErrObjectNotFound)

	client.getErr = awserr.New("SlowDown", "slow down", nil)
	_, err = store.Get(context.Background(), Locator{Location: "payload-bucket", Key: "missing"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestS3Store_Delete(t *testing.T) {
	client := newFakeS3()
	store, err := NewS3Store(client, "payload-bucket", quietLogger())
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), Locator{Location: "other-bucket", Key: "k"}))
	assert.Equal(t, "other-bucket", aws.StringValue(client.deleteInput.Bucket))
	assert.Equal(t, "k", aws.StringValue(client.deleteInput.Key))
}

func TestS3Store_DeleteManyChunks(t *testing.T) {
	client := newFakeS3()
	store, err := NewS3Store(client, "payload-bucket", quietLogger())
	require.NoError(t, err)

	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	require.NoError(t, store.DeleteMany(context.Background(), "other-bucket", keys))
	require.Len(t, client.deleteBatch, 3)
	assert.Len(t, client.deleteBatch[0].Delete.Objects, 1000)
	assert.Len(t, client.deleteBatch[1].Delete.Objects, 1000)
	assert.Len(t, client.deleteBatch[2].Delete.Objects, 500)
	assert.Equal(t, "other-bucket", aws.StringValue(client.deleteBatch[2].Bucket))
	assert.Equal(t, "key-2499", aws.StringValue(client.deleteBatch[2].Delete.Objects[499].Key))
}

func TestS3Store_DeleteManyReportsFailedKeys(t *testing.T) {
	client := newFakeS3()
	client.failedKeys["b"] = true
	store, err := NewS3Store(client, "payload-bucket", quietLogger())
	require.NoError(t, err)

	err = store.DeleteMany(context.Background(), "payload-bucket", []string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorContains(t, err, "b (AccessDenied)")
}
