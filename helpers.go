package scout

import (
	"path"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

// LoadTestConfig loads the given test config yaml file. The given path is
// assumed to be relative to the `scout/test/` directory. This will panic if
// it cannot read the requested config file. If you expect an error or are
// testing ReadConfigFile, use `GetTestFileDir()` instead.
func LoadTestConfig(filename string) {
	testdir := GetTestFileDir()
	err := ReadConfigFile(path.Join(testdir, filename))
	if err != nil {
		panic(err.Error())
	}
}

// GetTestFileDir returns the directory where shared test files are stored,
// for example test config files. It will panic if it could not get the path
// from the runtime.
func GetTestFileDir() string {
	_, p, _, ok := runtime.Caller(0)
	if !ok {
		panic("Failed to get location of test source file")
	}
	if !filepath.IsAbs(p) {
		logrus.Warnf("Tried to use runtime.Caller to get the test file "+
			"directory, but the path is incorrect: %v\nReturning './test' as "+
			"the test directory; if CWD != the root scout directory, tests "+
			"will fail.", p)
		return "test"
	}
	return path.Join(path.Dir(p), "test")
}
