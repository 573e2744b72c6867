package s3

import (
	"os"
	"testing"

	"gopkg.in/check.v1"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/attachkit/attachkit/storage/driver/testsuites"
)

// Test hooks up gocheck into the "go test" runner.
func Test(t *testing.T) { check.TestingT(t) }

func init() {
	accessKey := os.Getenv("AWS_ACCESS_KEY")
	secretKey := os.Getenv("AWS_SECRET_KEY")
	bucket := os.Getenv("S3_BUCKET")
	region := os.Getenv("AWS_REGION")
	regionEndpoint := os.Getenv("S3_REGION_ENDPOINT")

	s3DriverConstructor := func() (storagedriver.StorageDriver, error) {
		return New(DriverParameters{
			AccessKey:      accessKey,
			SecretKey:      secretKey,
			Bucket:         bucket,
			Region:         region,
			RegionEndpoint: regionEndpoint,
			RootDirectory:  "attachkit-driver-test",
			ForcePathStyle: regionEndpoint != "",
		})
	}

	// Skip S3 storage driver tests if environment variable parameters are
	// not provided.
	skipCheck := func() string {
		if bucket == "" || (region == "" && regionEndpoint == "") {
			return "Must set S3_BUCKET and AWS_REGION (or S3_REGION_ENDPOINT) to run S3 tests"
		}
		return ""
	}

	testsuites.RegisterSuite(s3DriverConstructor, skipCheck)
}

func TestNewValidation(t *testing.T) {
	if _, err := New(DriverParameters{Region: "us-east-1"}); err == nil {
		t.Error("expected an error for a missing bucket")
	}
	if _, err := New(DriverParameters{Bucket: "bkt"}); err == nil {
		t.Error("expected an error for a missing region")
	}
}
