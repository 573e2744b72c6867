package filesystem

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
	root, err := os.MkdirTemp("", "attachkit-driver-")
	if err != nil {
		panic(err)
	}

	filesystemDriverConstructor := func() (storagedriver.StorageDriver, error) {
		return New(root), nil
	}
	testsuites.RegisterSuite(filesystemDriverConstructor, testsuites.NeverSkip)
}

func TestFromParameters(t *testing.T) {
	d, err := FromParameters(map[string]interface{}{
		"rootdirectory": "/tmp/attachkit-test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d == nil {
		t.Fatal("expected a driver")
	}

	// nil parameters fall back to the default root
	if _, err := FromParameters(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
