package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/netscope/nlwire/nlsock"
)

type Config struct {
	// Family is the default address family queried by the dump commands:
	// inet, inet6 or unspec.
	Family string `yaml:"family"`

	Socket  *nlsock.Config `yaml:"socket"`
	Sockets *SocketsConfig `yaml:"sockets"`
	Monitor *MonitorConfig `yaml:"monitor"`
}

// SocketsConfig tunes the sockets subcommand.
type SocketsConfig struct {
	Protocol string `yaml:"protocol"`
	States   uint32 `yaml:"states"`
	Procs    bool   `yaml:"procs"`
}

// MonitorConfig tunes the monitor subcommand.
type MonitorConfig struct {
	Groups []string `yaml:"groups"`
}

var (
	DefaultSocketsConfig = SocketsConfig{
		Protocol: "tcp",
		States:   0xFFFFFFFF,
	}

	DefaultMonitorConfig = MonitorConfig{
		Groups: []string{"route", "addr"},
	}

	DefaultConfig = Config{
		Family:  "inet6",
		Socket:  &nlsock.DefaultConfig,
		Sockets: &DefaultSocketsConfig,
		Monitor: &DefaultMonitorConfig,
	}
)

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	// Fresh copies so unmarshalling can't scribble over the shared
	// defaults through the pointer fields.
	socket := nlsock.DefaultConfig
	sockets := DefaultSocketsConfig
	monitor := DefaultMonitorConfig
	def := config{
		Family:  DefaultConfig.Family,
		Socket:  &socket,
		Sockets: &sockets,
		Monitor: &monitor,
	}

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return nil
}

func ReadConf(path string) (*Config, error) {
	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	return &conf, nil
}
