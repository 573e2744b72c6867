// Package testsuites provides a gocheck conformance suite which every
// storage driver implementation registers against its own constructor.
package testsuites

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	mrand "math/rand"
	"testing"

	"gopkg.in/check.v1"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
)

// Test hooks up gocheck into the "go test" runner.
func Test(t *testing.T) { check.TestingT(t) }

// RegisterSuite registers an in-process storage driver test suite with the
// go test runner.
func RegisterSuite(driverConstructor DriverConstructor, skipCheck SkipCheck) {
	check.Suite(&DriverSuite{
		Constructor: driverConstructor,
		SkipCheck:   skipCheck,
	})
}

// SkipCheck is a function used to determine if a test suite should be
// skipped. If a SkipCheck returns a non-empty skip reason, the suite is
// skipped with the given reason.
type SkipCheck func() (reason string)

// NeverSkip is a default SkipCheck which never skips the suite.
var NeverSkip SkipCheck = func() string { return "" }

// DriverConstructor is a function which returns a new
// storagedriver.StorageDriver.
type DriverConstructor func() (storagedriver.StorageDriver, error)

// DriverTeardown is a function which cleans up a suite's
// storagedriver.StorageDriver.
type DriverTeardown func() error

// DriverSuite is a gocheck test suite designed to test a
// storagedriver.StorageDriver. The intended way to create a DriverSuite is
// with RegisterSuite.
type DriverSuite struct {
	Constructor DriverConstructor
	Teardown    DriverTeardown
	SkipCheck
	storagedriver.StorageDriver
	ctx context.Context
}

// SetUpSuite sets up the gocheck test suite.
func (suite *DriverSuite) SetUpSuite(c *check.C) {
	if reason := suite.SkipCheck(); reason != "" {
		c.Skip(reason)
	}
	d, err := suite.Constructor()
	c.Assert(err, check.IsNil)
	suite.StorageDriver = d
	suite.ctx = context.Background()
}

// TearDownSuite tears down the gocheck test suite.
func (suite *DriverSuite) TearDownSuite(c *check.C) {
	if suite.Teardown != nil {
		err := suite.Teardown()
		c.Assert(err, check.IsNil)
	}
}

// TestWriteReadSmall tests a simple write-read workflow.
func (suite *DriverSuite) TestWriteReadSmall(c *check.C) {
	suite.writeReadCompare(c, randomPath(32), []byte("a"))
}

// TestWriteReadUnicode tests a write-read workflow with unicode content.
func (suite *DriverSuite) TestWriteReadUnicode(c *check.C) {
	suite.writeReadCompare(c, randomPath(32), []byte("\xc3\x9f"))
}

// TestWriteReadLarge tests a write-read workflow with 1MB of data.
func (suite *DriverSuite) TestWriteReadLarge(c *check.C) {
	suite.writeReadCompare(c, randomPath(32), randomContents(1024*1024))
}

// TestWriteReadNested tests reading and writing under a nested path.
func (suite *DriverSuite) TestWriteReadNested(c *check.C) {
	filename := randomPath(16) + "/" + randomPath(16) + "/" + randomPath(16)
	defer suite.deletePath(c, filename)

	contents := randomContents(256)
	err := suite.StorageDriver.PutContent(suite.ctx, filename, contents)
	c.Assert(err, check.IsNil)

	readContents, err := suite.StorageDriver.GetContent(suite.ctx, filename)
	c.Assert(err, check.IsNil)
	c.Assert(readContents, check.DeepEquals, contents)
}

// TestWriteStream tests that io.Reader content round trips through
// WriteStream and Reader.
func (suite *DriverSuite) TestWriteStream(c *check.C) {
	filename := randomPath(32)
	defer suite.deletePath(c, filename)

	contents := randomContents(16 * 1024)
	nn, err := suite.StorageDriver.WriteStream(suite.ctx, filename, bytes.NewReader(contents))
	c.Assert(err, check.IsNil)
	c.Assert(nn, check.Equals, int64(len(contents)))

	reader, err := suite.StorageDriver.Reader(suite.ctx, filename, 0)
	c.Assert(err, check.IsNil)
	defer reader.Close()

	readContents, err := io.ReadAll(reader)
	c.Assert(err, check.IsNil)
	c.Assert(readContents, check.DeepEquals, contents)
}

// TestReaderWithOffset tests that Reader honors a nonzero byte offset.
func (suite *DriverSuite) TestReaderWithOffset(c *check.C) {
	filename := randomPath(32)
	defer suite.deletePath(c, filename)

	contents := randomContents(1024)
	err := suite.StorageDriver.PutContent(suite.ctx, filename, contents)
	c.Assert(err, check.IsNil)

	reader, err := suite.StorageDriver.Reader(suite.ctx, filename, 512)
	c.Assert(err, check.IsNil)
	defer reader.Close()

	readContents, err := io.ReadAll(reader)
	c.Assert(err, check.IsNil)
	c.Assert(readContents, check.DeepEquals, contents[512:])
}

// TestReadNonexistent tests reading a nonexistent path, which must fail with
// a PathNotFoundError rather than a generic failure.
func (suite *DriverSuite) TestReadNonexistent(c *check.C) {
	filename := randomPath(32)

	_, err := suite.StorageDriver.GetContent(suite.ctx, filename)
	c.Assert(err, check.NotNil)
	c.Assert(err, check.FitsTypeOf, storagedriver.PathNotFoundError{})

	_, err = suite.StorageDriver.Reader(suite.ctx, filename, 0)
	c.Assert(err, check.NotNil)
	c.Assert(err, check.FitsTypeOf, storagedriver.PathNotFoundError{})
}

// TestInvalidPath tests that operations on a malformed path are rejected.
func (suite *DriverSuite) TestInvalidPath(c *check.C) {
	for _, filename := range []string{"", "abc/", "/abc", "ab c", "a//b"} {
		err := suite.StorageDriver.PutContent(suite.ctx, filename, []byte("content"))
		c.Assert(err, check.NotNil)
		c.Assert(err, check.FitsTypeOf, storagedriver.InvalidPathError{})
	}
}

// TestStat tests that Stat reports the stored object's size.
func (suite *DriverSuite) TestStat(c *check.C) {
	filename := randomPath(32)
	defer suite.deletePath(c, filename)

	contents := randomContents(4096)
	err := suite.StorageDriver.PutContent(suite.ctx, filename, contents)
	c.Assert(err, check.IsNil)

	fi, err := suite.StorageDriver.Stat(suite.ctx, filename)
	c.Assert(err, check.IsNil)
	c.Assert(fi.Path(), check.Equals, filename)
	c.Assert(fi.Size(), check.Equals, int64(len(contents)))

	_, err = suite.StorageDriver.Stat(suite.ctx, randomPath(32))
	c.Assert(err, check.NotNil)
	c.Assert(err, check.FitsTypeOf, storagedriver.PathNotFoundError{})
}

// TestExists tests the Exists helper against present and missing paths.
func (suite *DriverSuite) TestExists(c *check.C) {
	filename := randomPath(32)
	defer suite.deletePath(c, filename)

	exists, err := storagedriver.Exists(suite.ctx, suite.StorageDriver, filename)
	c.Assert(err, check.IsNil)
	c.Assert(exists, check.Equals, false)

	err = suite.StorageDriver.PutContent(suite.ctx, filename, randomContents(32))
	c.Assert(err, check.IsNil)

	exists, err = storagedriver.Exists(suite.ctx, suite.StorageDriver, filename)
	c.Assert(err, check.IsNil)
	c.Assert(exists, check.Equals, true)
}

// TestMove tests that moved content is identical at the destination and
// absent at the source.
func (suite *DriverSuite) TestMove(c *check.C) {
	contents := randomContents(32)
	sourcePath := randomPath(32)
	destPath := randomPath(32)
	defer suite.deletePath(c, sourcePath)
	defer suite.deletePath(c, destPath)

	err := suite.StorageDriver.PutContent(suite.ctx, sourcePath, contents)
	c.Assert(err, check.IsNil)

	err = suite.StorageDriver.Move(suite.ctx, sourcePath, destPath)
	c.Assert(err, check.IsNil)

	received, err := suite.StorageDriver.GetContent(suite.ctx, destPath)
	c.Assert(err, check.IsNil)
	c.Assert(received, check.DeepEquals, contents)

	_, err = suite.StorageDriver.GetContent(suite.ctx, sourcePath)
	c.Assert(err, check.NotNil)
	c.Assert(err, check.FitsTypeOf, storagedriver.PathNotFoundError{})
}

// TestMoveNonexistent tests that moving a missing path fails with a
// PathNotFoundError.
func (suite *DriverSuite) TestMoveNonexistent(c *check.C) {
	err := suite.StorageDriver.Move(suite.ctx, randomPath(32), randomPath(32))
	c.Assert(err, check.NotNil)
	c.Assert(err, check.FitsTypeOf, storagedriver.PathNotFoundError{})
}

// TestDelete tests deletion and its idempotence: deleting a missing path is
// not an error.
func (suite *DriverSuite) TestDelete(c *check.C) {
	filename := randomPath(32)

	err := suite.StorageDriver.PutContent(suite.ctx, filename, randomContents(32))
	c.Assert(err, check.IsNil)

	err = suite.StorageDriver.Delete(suite.ctx, filename)
	c.Assert(err, check.IsNil)

	exists, err := storagedriver.Exists(suite.ctx, suite.StorageDriver, filename)
	c.Assert(err, check.IsNil)
	c.Assert(exists, check.Equals, false)

	// second delete of the same path must succeed
	err = suite.StorageDriver.Delete(suite.ctx, filename)
	c.Assert(err, check.IsNil)
}

// TestDeletePrefix tests namespace cleanup: everything under the prefix goes
// away, siblings outside it survive and an unmatched prefix is not an error.
func (suite *DriverSuite) TestDeletePrefix(c *check.C) {
	prefix := randomPath(16)
	inside1 := prefix + "/" + randomPath(16)
	inside2 := prefix + "/" + randomPath(16)
	outside := prefix + "x" + randomPath(4)
	defer suite.deletePath(c, outside)

	for _, filename := range []string{inside1, inside2, outside} {
		err := suite.StorageDriver.PutContent(suite.ctx, filename, randomContents(32))
		c.Assert(err, check.IsNil)
	}

	err := suite.StorageDriver.DeletePrefix(suite.ctx, prefix)
	c.Assert(err, check.IsNil)

	for _, filename := range []string{inside1, inside2} {
		exists, err := storagedriver.Exists(suite.ctx, suite.StorageDriver, filename)
		c.Assert(err, check.IsNil)
		c.Assert(exists, check.Equals, false)
	}

	exists, err := storagedriver.Exists(suite.ctx, suite.StorageDriver, outside)
	c.Assert(err, check.IsNil)
	c.Assert(exists, check.Equals, true)

	// a prefix matching nothing must not raise
	err = suite.StorageDriver.DeletePrefix(suite.ctx, randomPath(32))
	c.Assert(err, check.IsNil)
}

// TestURLFor tests that URL generation either produces a URL or reports
// itself unsupported; unsupported options must be ignored.
func (suite *DriverSuite) TestURLFor(c *check.C) {
	filename := randomPath(32)
	defer suite.deletePath(c, filename)

	err := suite.StorageDriver.PutContent(suite.ctx, filename, randomContents(32))
	c.Assert(err, check.IsNil)

	url, err := suite.StorageDriver.URLFor(suite.ctx, filename, map[string]interface{}{
		"bogus_option": true,
	})
	if err != nil {
		c.Assert(err, check.FitsTypeOf, storagedriver.UnsupportedMethodError{})
		return
	}
	c.Assert(url, check.Not(check.Equals), "")
}

func (suite *DriverSuite) writeReadCompare(c *check.C, filename string, contents []byte) {
	defer suite.deletePath(c, filename)

	err := suite.StorageDriver.PutContent(suite.ctx, filename, contents)
	c.Assert(err, check.IsNil)

	readContents, err := suite.StorageDriver.GetContent(suite.ctx, filename)
	c.Assert(err, check.IsNil)
	c.Assert(readContents, check.DeepEquals, contents)
}

func (suite *DriverSuite) deletePath(c *check.C, path string) {
	err := suite.StorageDriver.Delete(suite.ctx, path)
	c.Assert(err, check.IsNil)
}

var pathChars = []byte("abcdefghijklmnopqrstuvwxyz0123456789")

func randomPath(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = pathChars[mrand.Intn(len(pathChars))]
	}
	return string(b)
}

func randomContents(length int) []byte {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
