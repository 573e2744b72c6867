// Package s3 provides a storage driver backed by Amazon S3 or an
// S3-compatible object store.
//
// Because S3 is a key/value store, "directories" are purely a prefix
// convention; DeletePrefix enumerates and batch-deletes keys under the
// prefix.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/mitchellh/mapstructure"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/attachkit/attachkit/storage/driver/base"
	"github.com/attachkit/attachkit/storage/driver/factory"
)

const driverName = "s3"

// listMax is the largest number of objects one ListObjectsV2 page returns,
// which conveniently matches the DeleteObjects batch limit.
const listMax = 1000

// defaultURLExpiry is used by URLFor when no expires_in option is given.
const defaultURLExpiry = 20 * time.Minute

func init() {
	factory.Register(driverName, &s3DriverFactory{})
}

// s3DriverFactory implements the factory.StorageDriverFactory interface.
type s3DriverFactory struct{}

func (f *s3DriverFactory) Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	return FromParameters(parameters)
}

// DriverParameters holds the configuration of the s3 driver.
type DriverParameters struct {
	AccessKey      string `mapstructure:"accesskey"`
	SecretKey      string `mapstructure:"secretkey"`
	SessionToken   string `mapstructure:"sessiontoken"`
	Region         string `mapstructure:"region"`
	RegionEndpoint string `mapstructure:"regionendpoint"`
	Bucket         string `mapstructure:"bucket"`
	RootDirectory  string `mapstructure:"rootdirectory"`
	Secure         *bool  `mapstructure:"secure"`
	ForcePathStyle bool   `mapstructure:"forcepathstyle"`
}

type driver struct {
	S3            *s3.S3
	uploader      *s3manager.Uploader
	Bucket        string
	RootDirectory string
}

type baseEmbed struct {
	base.Base
}

// Driver is a storagedriver.StorageDriver implementation backed by Amazon
// S3. Objects are stored in a single bucket under an optional root prefix.
type Driver struct {
	baseEmbed
}

// FromParameters constructs a new Driver from a parameter map. Required
// parameters:
//   - bucket
//   - region (unless regionendpoint is given)
//
// Optional parameters:
//   - accesskey, secretkey, sessiontoken (default credential chain otherwise)
//   - regionendpoint (S3-compatible stores)
//   - rootdirectory
//   - secure (default true)
//   - forcepathstyle
func FromParameters(parameters map[string]interface{}) (*Driver, error) {
	var params DriverParameters
	if err := mapstructure.Decode(parameters, &params); err != nil {
		return nil, fmt.Errorf("parsing s3 parameters: %w", err)
	}
	return New(params)
}

// New constructs a new Driver from DriverParameters.
func New(params DriverParameters) (*Driver, error) {
	if params.Bucket == "" {
		return nil, fmt.Errorf("s3: no bucket parameter provided")
	}
	if params.Region == "" && params.RegionEndpoint == "" {
		return nil, fmt.Errorf("s3: no region parameter provided")
	}

	awsConfig := aws.NewConfig()

	if params.AccessKey != "" && params.SecretKey != "" {
		creds := credentials.NewStaticCredentials(
			params.AccessKey,
			params.SecretKey,
			params.SessionToken,
		)
		awsConfig.WithCredentials(creds)
	}

	if params.RegionEndpoint != "" {
		awsConfig.WithEndpoint(params.RegionEndpoint)
	}
	if params.Region != "" {
		awsConfig.WithRegion(params.Region)
	}
	if params.Secure != nil {
		awsConfig.WithDisableSSL(!*params.Secure)
	}
	awsConfig.WithS3ForcePathStyle(params.ForcePathStyle)

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("s3: creating session: %w", err)
	}
	s3obj := s3.New(sess)

	d := &driver{
		S3:            s3obj,
		uploader:      s3manager.NewUploaderWithClient(s3obj),
		Bucket:        params.Bucket,
		RootDirectory: params.RootDirectory,
	}

	return &Driver{
		baseEmbed: baseEmbed{
			Base: base.Base{
				StorageDriver: d,
			},
		},
	}, nil
}

// Implement the storagedriver.StorageDriver interface.

func (d *driver) Name() string {
	return driverName
}

// GetContent retrieves the content stored at "path" as a []byte.
func (d *driver) GetContent(ctx context.Context, path string) ([]byte, error) {
	reader, err := d.Reader(ctx, path, 0)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// PutContent stores the []byte content at a location designated by "path".
func (d *driver) PutContent(ctx context.Context, path string, contents []byte) error {
	_, err := d.S3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.s3Path(path)),
		Body:   bytes.NewReader(contents),
	})
	return parseError(path, err)
}

// Reader retrieves an io.ReadCloser for the content stored at "path" with a
// given byte offset.
func (d *driver) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	resp, err := d.S3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.s3Path(path)),
		Range:  aws.String("bytes=" + strconv.FormatInt(offset, 10) + "-"),
	})
	if err != nil {
		if s3Err, ok := err.(awserr.Error); ok && s3Err.Code() == "InvalidRange" {
			return io.NopCloser(bytes.NewReader(nil)), nil
		}
		return nil, parseError(path, err)
	}
	return resp.Body, nil
}

// WriteStream stores the contents of the provided io.Reader at "path" using
// a managed multipart upload, returning the number of bytes written.
func (d *driver) WriteStream(ctx context.Context, path string, reader io.Reader) (int64, error) {
	counter := &countingReader{reader: reader}
	_, err := d.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.s3Path(path)),
		Body:   counter,
	})
	if err != nil {
		return 0, parseError(path, err)
	}
	return counter.n, nil
}

// Stat returns info about the provided path.
func (d *driver) Stat(ctx context.Context, path string) (storagedriver.FileInfo, error) {
	resp, err := d.S3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.s3Path(path)),
	})
	if err != nil {
		return nil, parseError(path, err)
	}

	fi := storagedriver.FileInfoFields{Path: path}
	if resp.ContentLength != nil {
		fi.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		fi.ModTime = *resp.LastModified
	}
	return storagedriver.FileInfoInternal{FileInfoFields: fi}, nil
}

// Move moves an object stored at sourcePath to destPath. S3 has no rename;
// the object is server-side copied and the source deleted, keeping the
// bytes off the wire.
func (d *driver) Move(ctx context.Context, sourcePath, destPath string) error {
	_, err := d.S3.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(d.Bucket),
		Key:        aws.String(d.s3Path(destPath)),
		CopySource: aws.String(d.Bucket + "/" + d.s3Path(sourcePath)),
	})
	if err != nil {
		return parseError(sourcePath, err)
	}

	_, err = d.S3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.s3Path(sourcePath)),
	})
	return parseError(sourcePath, err)
}

// Delete removes the object stored at "path". S3 object deletion succeeds
// for missing keys, which matches the idempotent contract.
func (d *driver) Delete(ctx context.Context, path string) error {
	_, err := d.S3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.s3Path(path)),
	})
	if err != nil {
		if _, notFound := parseError(path, err).(storagedriver.PathNotFoundError); notFound {
			return nil
		}
		return parseError(path, err)
	}
	return nil
}

// DeletePrefix removes every object under the given prefix in batches of
// listMax, tolerating a prefix that matches nothing.
func (d *driver) DeletePrefix(ctx context.Context, prefix string) error {
	s3Prefix := d.s3Path(prefix) + "/"
	listObjectsInput := &s3.ListObjectsV2Input{
		Bucket:  aws.String(d.Bucket),
		Prefix:  aws.String(s3Prefix),
		MaxKeys: aws.Int64(listMax),
	}

	for {
		resp, err := d.S3.ListObjectsV2WithContext(ctx, listObjectsInput)
		if err != nil {
			return parseError(prefix, err)
		}
		if len(resp.Contents) == 0 {
			return nil
		}

		s3Objects := make([]*s3.ObjectIdentifier, 0, len(resp.Contents))
		for _, key := range resp.Contents {
			s3Objects = append(s3Objects, &s3.ObjectIdentifier{Key: key.Key})
		}

		_, err = d.S3.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(d.Bucket),
			Delete: &s3.Delete{
				Objects: s3Objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return parseError(prefix, err)
		}

		if resp.IsTruncated == nil || !*resp.IsTruncated {
			return nil
		}
		listObjectsInput.ContinuationToken = resp.NextContinuationToken
	}
}

// URLFor returns a presigned GET URL for the given path. The "expires_in"
// option bounds the signature lifetime and accepts a time.Duration or a
// number of seconds; other options are ignored.
func (d *driver) URLFor(ctx context.Context, path string, options map[string]interface{}) (string, error) {
	expiry := defaultURLExpiry
	if v, ok := options["expires_in"]; ok {
		if parsed, ok := parseExpiry(v); ok {
			expiry = parsed
		}
	}

	req, _ := d.S3.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.s3Path(path)),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return "", parseError(path, err)
	}
	return url, nil
}

func parseExpiry(v interface{}) (time.Duration, bool) {
	switch t := v.(type) {
	case time.Duration:
		return t, true
	case int:
		return time.Duration(t) * time.Second, true
	case int64:
		return time.Duration(t) * time.Second, true
	case float64:
		return time.Duration(t) * time.Second, true
	}
	return 0, false
}

func (d *driver) s3Path(path string) string {
	if d.RootDirectory == "" {
		return path
	}
	return d.RootDirectory + "/" + path
}

func parseError(path string, err error) error {
	if err == nil {
		return nil
	}
	if s3Err, ok := err.(awserr.Error); ok {
		switch s3Err.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
		}
		if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == http.StatusNotFound {
			return storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
		}
	}
	return storagedriver.Error{DriverName: driverName, Detail: err}
}

// countingReader tracks how many bytes the s3 uploader consumed.
type countingReader struct {
	reader io.Reader
	n      int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.n += int64(n)
	return n, err
}
