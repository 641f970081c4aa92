package mock

import (
	"bytes"
	"io/ioutil"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/m-mizutani/envlake/internal/adaptor"
)

// S3Client is on memory S3Client mock. Each instance has own storage.
type S3Client struct {
	// PutErr is returned by PutObject if set
	PutErr error
	// PageSize overwrites default MaxKeys (1000) of ListObjectsV2
	PageSize int

	mutex sync.Mutex
	data  map[string]map[string][]byte
}

// NewS3Client is constructor of S3 Mock
func NewS3Client() *S3Client {
	return &S3Client{
		data: map[string]map[string][]byte{},
	}
}

// Factory returns S3ClientFactory always providing the mock
func (x *S3Client) Factory() adaptor.S3ClientFactory {
	return func(region string) adaptor.S3Client { return x }
}

func noSuchKey(key string) error {
	return awserr.New(s3.ErrCodeNoSuchKey, "no such key: "+key, nil)
}

// GetObject of S3Client loads []bytes from memory
func (x *S3Client) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	bucket, ok := x.data[*input.Bucket]
	if !ok {
		return nil, noSuchKey(*input.Key)
	}
	obj, ok := bucket[*input.Key]
	if !ok {
		return nil, noSuchKey(*input.Key)
	}

	return &s3.GetObjectOutput{
		Body:          ioutil.NopCloser(bytes.NewReader(obj)),
		ContentLength: aws.Int64(int64(len(obj))),
	}, nil
}

// PutObject of S3Client saves []bytes to memory
func (x *S3Client) PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	if x.PutErr != nil {
		return nil, x.PutErr
	}

	raw, err := ioutil.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	x.Put(*input.Bucket, *input.Key, raw)
	return &s3.PutObjectOutput{}, nil
}

// ListObjectsV2 returns keys in lexical order. ContinuationToken is the next
// key to be returned.
func (x *S3Client) ListObjectsV2(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	prefix := aws.StringValue(input.Prefix)
	token := aws.StringValue(input.ContinuationToken)
	pageSize := 1000
	if x.PageSize > 0 {
		pageSize = x.PageSize
	}

	keys := x.Keys(*input.Bucket, prefix)
	output := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}

	x.mutex.Lock()
	defer x.mutex.Unlock()
	for _, key := range keys {
		if token != "" && key < token {
			continue
		}
		if len(output.Contents) >= pageSize {
			output.IsTruncated = aws.Bool(true)
			output.NextContinuationToken = aws.String(key)
			break
		}
		output.Contents = append(output.Contents, &s3.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(x.data[*input.Bucket][key]))),
		})
	}
	output.KeyCount = aws.Int64(int64(len(output.Contents)))

	return output, nil
}

// DeleteObjects of S3Client remove []bytes from memory
func (x *S3Client) DeleteObjects(input *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	bucket, ok := x.data[*input.Bucket]
	if !ok {
		return nil, noSuchKey(*input.Bucket)
	}

	output := &s3.DeleteObjectsOutput{}
	for _, obj := range input.Delete.Objects {
		if _, ok := bucket[*obj.Key]; !ok {
			return nil, noSuchKey(*obj.Key)
		}

		delete(bucket, *obj.Key)
		output.Deleted = append(output.Deleted, &s3.DeletedObject{Key: obj.Key})
	}

	return output, nil
}

// Put stores raw data directly
func (x *S3Client) Put(bucket, key string, raw []byte) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	bkt, ok := x.data[bucket]
	if !ok {
		bkt = map[string][]byte{}
		x.data[bucket] = bkt
	}
	bkt[key] = raw
}

// Get returns stored data, nil if not found
func (x *S3Client) Get(bucket, key string) []byte {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.data[bucket][key]
}

// Keys returns sorted keys having prefix in the bucket
func (x *S3Client) Keys(bucket, prefix string) []string {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	var keys []string
	for key := range x.data[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
