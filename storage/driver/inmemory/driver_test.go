package inmemory

import (
	"testing"

	"gopkg.in/check.v1"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/attachkit/attachkit/storage/driver/testsuites"
)

// Test hooks up gocheck into the "go test" runner.
func Test(t *testing.T) { check.TestingT(t) }

func init() {
	inmemoryDriverConstructor := func() (storagedriver.StorageDriver, error) {
		return New(), nil
	}
	testsuites.RegisterSuite(inmemoryDriverConstructor, testsuites.NeverSkip)
}
