package scout

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is the configuration instance the rest of scout should access for
// global configuration values. See ScoutConfig for available config members.
var Config ScoutConfig

// ConfigName is the path (can be relative or absolute) to the config file that
// should be read.
var ConfigName string = "scout.yaml"

func init() {
	err := readConfig()
	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			logrus.Infof("Did not find config file %v, continuing with defaults", ConfigName)
		} else {
			panic(err.Error())
		}
	}
}

// ScoutConfig defines the available global configuration parameters for
// scout. It reads values straight from the config file (scout.yaml by
// default). See sample-scout.yaml for explanations and default values.
type ScoutConfig struct {
	Fetcher struct {
		UserAgent   string `yaml:"user_agent"`
		HTTPTimeout string `yaml:"http_timeout"`
		ProxyHost   string `yaml:"proxy_host"`
		ProxyPort   int    `yaml:"proxy_port"`

		// MaxBodyExcerptBytes bounds how much of a probe response body is
		// carried into a rejection's details.
		MaxBodyExcerptBytes int `yaml:"max_body_excerpt_bytes"`
	} `yaml:"fetcher"`

	Dispatch struct {
		AvgLinksPerPage              int    `yaml:"avg_links_per_page"`
		LockExpiration               string `yaml:"lock_expiration"`
		ReviewExpiration             string `yaml:"review_expiration"`
		DefaultConcurrentConnections int    `yaml:"default_concurrent_connections"`
		NextJobListPageSize          int    `yaml:"next_job_list_page_size"`
	} `yaml:"dispatch"`

	MySQL struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Timeout         string `yaml:"timeout"`
		NumQueryRetries int    `yaml:"num_query_retries"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
	} `yaml:"mysql"`

	Redis struct {
		Addr          string `yaml:"addr"`
		Password      string `yaml:"password"`
		DB            int    `yaml:"db"`
		KeyPrefix     string `yaml:"key_prefix"`
		EventsChannel string `yaml:"events_channel"`
	} `yaml:"redis"`

	Console struct {
		Port int `yaml:"port"`
	} `yaml:"console"`
}

// SetDefaultConfig resets the Config object to default values, regardless of
// what was set by any configuration file.
func SetDefaultConfig() {
	Config.Fetcher.UserAgent = "Scout (http://github.com/scrutinize/scout)"
	Config.Fetcher.HTTPTimeout = "30s"
	Config.Fetcher.ProxyHost = ""
	Config.Fetcher.ProxyPort = 0
	Config.Fetcher.MaxBodyExcerptBytes = 2048

	Config.Dispatch.AvgLinksPerPage = 10
	Config.Dispatch.LockExpiration = "5m"
	Config.Dispatch.ReviewExpiration = "6h"
	Config.Dispatch.DefaultConcurrentConnections = 10
	Config.Dispatch.NextJobListPageSize = 200

	Config.MySQL.Host = "localhost"
	Config.MySQL.Port = 3306
	Config.MySQL.User = "scout"
	Config.MySQL.Password = ""
	Config.MySQL.Database = "scout"
	Config.MySQL.Timeout = "2s"
	Config.MySQL.NumQueryRetries = 3
	Config.MySQL.MaxOpenConns = 20

	Config.Redis.Addr = "localhost:6379"
	Config.Redis.Password = ""
	Config.Redis.DB = 0
	Config.Redis.KeyPrefix = "scout"
	Config.Redis.EventsChannel = "scout-events"

	Config.Console.Port = 3000
}

// ReadConfigFile sets a new path to find the scout yaml config file and
// forces a reload of the config.
func ReadConfigFile(path string) error {
	ConfigName = path
	return readConfig()
}

// MustReadConfigFile calls ReadConfigFile and panics on error.
func MustReadConfigFile(path string) {
	err := ReadConfigFile(path)
	if err != nil {
		panic(err.Error())
	}
}

func assertConfigInvariants() error {
	var errs []string
	var err error

	fet := &Config.Fetcher
	_, err = time.ParseDuration(fet.HTTPTimeout)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Fetcher.HTTPTimeout failed to parse: %v", err))
	}

	dis := &Config.Dispatch
	if dis.AvgLinksPerPage < 1 {
		errs = append(errs, "Dispatch.AvgLinksPerPage must be greater than 0")
	}
	if dis.DefaultConcurrentConnections < 1 {
		errs = append(errs, "Dispatch.DefaultConcurrentConnections must be greater than 0")
	}
	if dis.NextJobListPageSize < 1 {
		errs = append(errs, "Dispatch.NextJobListPageSize must be greater than 0")
	}
	_, err = time.ParseDuration(dis.LockExpiration)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Dispatch.LockExpiration failed to parse: %v", err))
	}
	_, err = time.ParseDuration(dis.ReviewExpiration)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Dispatch.ReviewExpiration failed to parse: %v", err))
	}

	_, err = time.ParseDuration(Config.MySQL.Timeout)
	if err != nil {
		errs = append(errs, fmt.Sprintf("MySQL.Timeout failed to parse: %v", err))
	}
	if Config.MySQL.NumQueryRetries < 0 {
		errs = append(errs, "MySQL.NumQueryRetries must not be negative")
	}

	if len(errs) > 0 {
		em := ""
		for _, err := range errs {
			logrus.Errorf("Config Error: %v", err)
			em += "\t"
			em += err
			em += "\n"
		}
		return fmt.Errorf("Config Error:\n%v\n", em)
	}

	return nil
}

func readConfig() error {
	SetDefaultConfig()

	data, err := os.ReadFile(ConfigName)
	if err != nil {
		return fmt.Errorf("Failed to read config file (%v): %v", ConfigName, err)
	}
	err = yaml.Unmarshal(data, &Config)
	if err != nil {
		return fmt.Errorf("Failed to unmarshal yaml from config file (%v): %v", ConfigName, err)
	}

	err = assertConfigInvariants()
	if err == nil {
		logrus.Infof("Loaded config file %v", ConfigName)
	}

	return err
}
