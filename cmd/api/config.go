package main

import (
	"encoding/json"
	"os"

	"github.com/omeid/uconfig"
)

// configFilename is the filename of the config file automatically loaded.
var configFilename = "config.json"

type config struct {
	HTTP struct {
		Port string `default:"8080"`

		MaxRequestPerInterval uint64 `default:"10"`
		RateLimInterval       string `default:"1s"`
	}
	Metrics struct {
		Port string `default:"9090"`
	}
	Log struct {
		Human bool `default:"false"`
		Debug bool `default:"false"`
	}
	DB struct {
		Path string `default:"database.db"`
	}
	HSM struct {
		Provider       string `default:"memory"`
		PIN            string `default:""`
		LibraryPath    string `default:""`
		SlotID         int    `default:"0"`
		FIPSCompliance bool   `default:"false"`
	}
	Retry struct {
		MaxRetries     int    `default:"3"`
		BaseDelay      string `default:"500ms"`
		MaxDelay       string `default:"10s"`
		AttemptTimeout string `default:"15s"`
	}
	TenantID string `default:""`
	Chains   []ChainConfig
}

// ChainConfig contains the configuration of a supported chain.
type ChainConfig struct {
	Name            string
	ChainID         int64
	EthEndpoint     string
	RelayPrivateKey string
}

func setupConfig() *config {
	conf := &config{}
	confFiles := uconfig.Files{
		{configFilename, json.Unmarshal},
	}

	c, err := uconfig.Classic(&conf, confFiles)
	if err != nil {
		c.Usage()
		os.Exit(1)
	}

	return conf
}
