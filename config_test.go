package scout

import (
	"path"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
)

func init() {
	// Tests outside of config_test.go also require this configuration to be
	// loaded; Config tests should reset it by making this call
	LoadTestConfig("test-scout.yaml")

	// For tests it's useful to see more than the default INFO
	logrus.SetLevel(logrus.DebugLevel)
}

func TestConfigLoading(t *testing.T) {
	defer func() {
		// Reset config for the remaining tests
		LoadTestConfig("test-scout.yaml")
	}()

	Config.Fetcher.UserAgent = "Test Agent (set inline)"
	SetDefaultConfig()
	expectedAgentInline := "Scout (http://github.com/scrutinize/scout)"
	if Config.Fetcher.UserAgent != expectedAgentInline {
		t.Errorf("Failed to reset default config value (user_agent), expected: %v\nBut got: %v",
			expectedAgentInline, Config.Fetcher.UserAgent)
	}

	LoadTestConfig("test-scout2.yaml")
	expectedAgentYaml := "Test Agent (set in yaml)"
	if Config.Fetcher.UserAgent != expectedAgentYaml {
		t.Errorf("Failed to set config value (user_agent) via yaml, expected: %v\nBut got: %v",
			expectedAgentYaml, Config.Fetcher.UserAgent)
	}
}

func TestConfigDefaults(t *testing.T) {
	defer LoadTestConfig("test-scout.yaml")
	SetDefaultConfig()

	if Config.Dispatch.AvgLinksPerPage != 10 {
		t.Errorf("Expected default avg_links_per_page of 10, got %v",
			Config.Dispatch.AvgLinksPerPage)
	}
	if Config.Dispatch.LockExpiration != "5m" {
		t.Errorf("Expected default lock_expiration of 5m, got %v",
			Config.Dispatch.LockExpiration)
	}
	if Config.MySQL.Port != 3306 {
		t.Errorf("Expected default mysql port of 3306, got %v", Config.MySQL.Port)
	}
	if Config.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected default redis addr of localhost:6379, got %v",
			Config.Redis.Addr)
	}
}

type ConfigTestCase struct {
	file     string
	expected *regexp.Regexp
}

var ConfigTestCases = []ConfigTestCase{
	ConfigTestCase{
		"does-not-exist.yaml",
		regexp.MustCompile("Failed to read config file .*no such file or directory"),
	},
	ConfigTestCase{
		"invalid-syntax.yaml",
		regexp.MustCompile("Failed to unmarshal yaml"),
	},
	ConfigTestCase{
		"invalid-field-type.yaml",
		regexp.MustCompile("Failed to unmarshal yaml"),
	},
	ConfigTestCase{
		"invalid-duration.yaml",
		regexp.MustCompile("LockExpiration failed to parse"),
	},
}

func TestConfigLoadingBadFiles(t *testing.T) {
	defer func() {
		// Reset config for the remaining tests
		LoadTestConfig("test-scout.yaml")
	}()

	testdir := GetTestFileDir()
	for _, c := range ConfigTestCases {
		err := ReadConfigFile(path.Join(testdir, c.file))
		if err == nil {
			t.Errorf("Expected an error loading %v but got none", c.file)
			continue
		}
		if !c.expected.MatchString(err.Error()) {
			t.Errorf("Loading %v, expected an error matching %q but got: %v",
				c.file, c.expected, err)
		}
	}
}
