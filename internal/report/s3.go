package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func NewUploader(cfg aws.Config, bucket, prefix string) *Uploader {
	return NewUploaderWithClient(s3.NewFromConfig(cfg), bucket, prefix)
}

func NewUploaderWithClient(client PutObjectAPI, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Key is the object key a report file is stored under.
func (u *Uploader) Key(runID, fileName string) string {
	return u.prefix + runID + "-" + filepath.Base(fileName)
}

// Upload puts fileName into the bucket and returns the object key.
func (u *Uploader) Upload(ctx context.Context, runID, fileName string) (string, error) {
	if u.bucket == "" {
		return "", errors.New("no report bucket configured")
	}
	file, err := os.Open(fileName)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open file %s for upload", fileName)
	}
	defer file.Close()

	key := u.Key(runID, fileName)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s to bucket %s", fileName, u.bucket)
	}
	return key, nil
}
