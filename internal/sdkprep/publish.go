package sdkprep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/schollz/progressbar/v3"
)

// ErrPublishNotConfigured is returned when the S3 settings are incomplete.
var ErrPublishNotConfigured = errors.New("publishing is not configured")

// ObjectStore is the part of an S3 client that publish needs.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	UploadLocalFile(ctx context.Context, key, filePath string) error
}

// S3Store uploads SDK archives to an S3-compatible bucket.
type S3Store struct {
	Client *s3.Client
	Bucket string
}

// NewS3Store builds a client for s. A custom endpoint switches to
// path-style addressing, which R2 and MinIO need.
func NewS3Store(ctx context.Context, s S3Settings) (*S3Store, error) {
	if s.Bucket == "" || s.AccessKeyID == "" || s.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w (S3_BUCKET, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY)", ErrPublishNotConfigured)
	}

	options := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, "")),
		config.WithRegion(s.Region),
	}
	if Debug {
		options = append(options, config.WithClientLogMode(aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{Client: client, Bucket: s.Bucket}, nil
}

// Exists reports whether key is already in the bucket.
func (st *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := st.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(st.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// UploadLocalFile uploads a file from disk, showing byte progress.
func (st *S3Store) UploadLocalFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	bar := newByteProgress(stat.Size(), "uploading "+filepath.Base(filePath))
	defer bar.Finish()

	_, err = st.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(st.Bucket),
		Key:           aws.String(key),
		Body:          &progressReadSeeker{ReadSeeker: file, bar: bar},
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentTypeFor(key)),
	})
	return err
}

// progressReadSeeker reports reads to bar. The SDK may read the body once to
// hash it and rewind, so a rewind restarts the bar.
type progressReadSeeker struct {
	io.ReadSeeker
	bar *progressbar.ProgressBar
}

func (p *progressReadSeeker) Read(b []byte) (int, error) {
	n, err := p.ReadSeeker.Read(b)
	if n > 0 {
		p.bar.Add(n)
	}
	return n, err
}

func (p *progressReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.ReadSeeker.Seek(offset, whence)
	if err == nil && pos == 0 {
		p.bar.Reset()
	}
	return pos, err
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".zst"):
		return "application/zstd"
	case strings.HasSuffix(key, ".xz"):
		return "application/x-xz"
	case strings.HasSuffix(key, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(key, checksumSuffix):
		return "text/plain"
	}
	return "application/octet-stream"
}

// objectKey places name under prefix.
func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// PublishOptions controls 'sdkprep publish'.
type PublishOptions struct {
	Prefix string
	Yes    bool      // overwrite without asking
	In     io.Reader // confirmation input, os.Stdin when nil
}

// PublishArchive verifies an archive and uploads it with its sidecar. An
// existing object is only replaced after confirmation.
func PublishArchive(ctx context.Context, store ObjectStore, archive string, opts PublishOptions) ([]string, error) {
	if _, err := VerifySDKArchive(archive); err != nil {
		return nil, fmt.Errorf("refusing to publish: %w", err)
	}

	key := objectKey(opts.Prefix, filepath.Base(archive))
	exists, err := store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", key, err)
	}
	if exists && !opts.Yes {
		in := opts.In
		if in == nil {
			in = os.Stdin
		}
		if !askForConfirmation(in, colWarn, "%s already exists, overwrite?", key) {
			return nil, fmt.Errorf("%s already exists", key)
		}
	}

	uploads := []struct{ key, file string }{
		{key, archive},
		{key + checksumSuffix, archive + checksumSuffix},
	}
	var keys []string
	for _, u := range uploads {
		step("Uploading %s", u.key)
		if err := store.UploadLocalFile(ctx, u.key, u.file); err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", u.key, err)
		}
		keys = append(keys, u.key)
	}
	return keys, nil
}
