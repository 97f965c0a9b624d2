package project

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"sales-report-go/operators"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

type mime string

var (
	MimeCSV     mime = "csv"
	MimeParquet mime = "parquet"
)

var (
	ErrObjectTooLarge = func(key string, limit int64) error {
		return errors.Newf("object %s is larger than the %d byte download limit", key, limit)
	}
	ErrUnknownObjectFormat = func(key string) error {
		return errors.Newf("cannot tell the format of %s, expected a .csv or .parquet key", key)
	}
)

// ObjectGetter is the slice of the S3 API the source needs. *s3.Client satisfies it.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Options struct {
	Region       string
	EndpointURL  string // empty uses the AWS endpoint for Region
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// NewS3Client builds a client with static credentials when a key pair is
// given and the SDK's anonymous access otherwise.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.EndpointURL != "" {
		o.BaseEndpoint = aws.String(opts.EndpointURL)
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     opts.AccessKey,
			SecretAccessKey: opts.SecretKey,
			SessionToken:    opts.SessionToken,
			Source:          "sales-report-env",
		}
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	} else {
		o.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(o)
}

// NetworkResource is one downloaded object held in memory.
type NetworkResource struct {
	bucket string
	key    string
	body   []byte
}

// FetchObject downloads bucket/key, refusing objects over maxBytes.
func FetchObject(ctx context.Context, client ObjectGetter, bucket, key string, maxBytes int64) (*NetworkResource, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", bucket, key)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && maxBytes > 0 && *out.ContentLength > maxBytes {
		return nil, ErrObjectTooLarge(key, maxBytes)
	}
	reader := io.Reader(out.Body)
	if maxBytes > 0 {
		// one extra byte tells an exact fit from an overflow
		reader = io.LimitReader(out.Body, maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "read s3://%s/%s", bucket, key)
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, ErrObjectTooLarge(key, maxBytes)
	}
	logrus.WithFields(logrus.Fields{"bucket": bucket, "key": key, "bytes": len(body)}).Debug("downloaded object")
	return &NetworkResource{bucket: bucket, key: key, body: body}, nil
}

func (n *NetworkResource) Size() int {
	return len(n.body)
}

// Format is decided by the key suffix.
func (n *NetworkResource) Format() (mime, error) {
	switch strings.ToLower(path.Ext(n.key)) {
	case ".csv":
		return MimeCSV, nil
	case ".parquet":
		return MimeParquet, nil
	default:
		return "", ErrUnknownObjectFormat(n.key)
	}
}

// Source opens the object with the reader its format needs.
func (n *NetworkResource) Source(ctx context.Context, batchSize int) (operators.Operator, error) {
	format, err := n.Format()
	if err != nil {
		return nil, err
	}
	switch format {
	case MimeParquet:
		return NewParquetSource(ctx, bytes.NewReader(n.body), batchSize)
	default:
		return NewProjectCSVLeaf(bytes.NewReader(n.body))
	}
}
