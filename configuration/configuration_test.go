package configuration

import (
	"bytes"
	"os"
	"strings"
	"testing"

	. "gopkg.in/check.v1"

	_ "github.com/attachkit/attachkit/storage/driver/inmemory"
)

// Hook up gocheck into the "go test" runner
func Test(t *testing.T) { TestingT(t) }

// configYamlV0_1 is a Version 0.1 yaml document representing configStruct
var configYamlV0_1 = `
version: 0.1
loglevel: debug
storages:
  cache:
    inmemory
  store:
    filesystem:
      rootdirectory: /tmp/attachments
`

type ConfigSuite struct {
	expectedConfig *Configuration
}

var _ = Suite(new(ConfigSuite))

func (suite *ConfigSuite) SetUpTest(c *C) {
	os.Clearenv()
	suite.expectedConfig = &Configuration{
		Version:  MajorMinorVersion(0, 1),
		Loglevel: "debug",
		Storages: map[string]Storage{
			"cache": {"inmemory": Parameters{}},
			"store": {"filesystem": Parameters{"rootdirectory": "/tmp/attachments"}},
		},
	}
}

// TestParseSimple validates that configYamlV0_1 can be parsed into a struct
// matching expectedConfig
func (suite *ConfigSuite) TestParseSimple(c *C) {
	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	c.Assert(err, IsNil)
	c.Assert(config, DeepEquals, suite.expectedConfig)
}

// TestParseDefaultLoglevel validates that the loglevel defaults to info when
// omitted
func (suite *ConfigSuite) TestParseDefaultLoglevel(c *C) {
	config, err := Parse(strings.NewReader("version: 0.1\nstorages:\n  cache: inmemory\n"))
	c.Assert(err, IsNil)
	c.Assert(config.Loglevel, Equals, Loglevel("info"))
}

// TestParseInvalidLoglevel validates that a bogus loglevel is rejected
func (suite *ConfigSuite) TestParseInvalidLoglevel(c *C) {
	_, err := Parse(strings.NewReader("version: 0.1\nloglevel: derp\nstorages:\n  cache: inmemory\n"))
	c.Assert(err, NotNil)
}

// TestParseInvalidVersion validates that a config with an unsupported version
// is rejected
func (suite *ConfigSuite) TestParseInvalidVersion(c *C) {
	_, err := Parse(strings.NewReader("version: 100.0\nstorages:\n  cache: inmemory\n"))
	c.Assert(err, NotNil)
}

// TestParseWithoutStorages validates that a config with no storages section
// is rejected
func (suite *ConfigSuite) TestParseWithoutStorages(c *C) {
	_, err := Parse(strings.NewReader("version: 0.1\nloglevel: info\n"))
	c.Assert(err, NotNil)
}

// TestParseMultipleDriverTypes validates that exactly one driver type is
// accepted per storage key
func (suite *ConfigSuite) TestParseMultipleDriverTypes(c *C) {
	yaml := `
version: 0.1
storages:
  cache:
    inmemory: {}
    filesystem:
      rootdirectory: /tmp
`
	_, err := Parse(strings.NewReader(yaml))
	c.Assert(err, NotNil)
}

// TestParseWithEnvLoglevel validates that the loglevel can be overridden by
// an environment variable
func (suite *ConfigSuite) TestParseWithEnvLoglevel(c *C) {
	os.Setenv("ATTACHKIT_LOGLEVEL", "error")

	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	c.Assert(err, IsNil)
	c.Assert(config.Loglevel, Equals, Loglevel("error"))
}

// TestParseWithEnvStorageParams validates that storage parameters can be
// overridden by an environment variable
func (suite *ConfigSuite) TestParseWithEnvStorageParams(c *C) {
	os.Setenv("ATTACHKIT_STORAGES_STORE_FILESYSTEM_ROOTDIRECTORY", "/srv/attachments")

	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	c.Assert(err, IsNil)
	c.Assert(config.Storages["store"].Parameters()["rootdirectory"], Equals, "/srv/attachments")
}

// TestBuildRegistry validates that a registry can be constructed from a
// parsed configuration
func (suite *ConfigSuite) TestBuildRegistry(c *C) {
	config, err := Parse(strings.NewReader("version: 0.1\nstorages:\n  cache: inmemory\n  store: inmemory\n"))
	c.Assert(err, IsNil)

	registry, err := config.BuildRegistry()
	c.Assert(err, IsNil)
	c.Assert(registry.Keys(), DeepEquals, []string{"cache", "store"})
}

// TestBuildRegistryUnknownDriver validates that an unregistered driver type
// surfaces as a configuration error
func (suite *ConfigSuite) TestBuildRegistryUnknownDriver(c *C) {
	config := &Configuration{
		Version:  CurrentVersion,
		Storages: map[string]Storage{"cache": {"teleport": Parameters{}}},
	}
	_, err := config.BuildRegistry()
	c.Assert(err, NotNil)
}
