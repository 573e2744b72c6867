package redis

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
	address := os.Getenv("REDIS_ADDR")

	redisDriverConstructor := func() (storagedriver.StorageDriver, error) {
		return FromParameters(map[string]interface{}{
			"address":   address,
			"keyprefix": "attachkit-driver-test:",
		})
	}

	// Skip redis storage driver tests if no server address is provided.
	skipCheck := func() string {
		if address == "" {
			return "Must set REDIS_ADDR to run redis tests"
		}
		return ""
	}

	testsuites.RegisterSuite(redisDriverConstructor, skipCheck)
}

func TestFromParametersValidation(t *testing.T) {
	if _, err := FromParameters(map[string]interface{}{}); err == nil {
		t.Error("expected an error for a missing address")
	}
}
