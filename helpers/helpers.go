// Package helpers holds shared test utilities.
package helpers

import (
	"path"
	"runtime"

	"github.com/scrutinize/scout"
)

// LoadTestConfig loads the given test config yaml file. The given path is
// assumed to be relative to the `scout/helpers/` directory, the location of
// this file. This will panic if it cannot read the requested config file. If
// you expect an error or are testing scout.ReadConfigFile, use
// `GetTestFileDir()` instead.
func LoadTestConfig(filename string) {
	testdir := GetTestFileDir()
	err := scout.ReadConfigFile(path.Join(testdir, filename))
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
	return path.Dir(p)
}
