package nlsock

import (
	"github.com/goccy/go-yaml"
)

type Config struct {
	// RecvBufferSize is handed to SO_RCVBUF: the kernel-side queue.
	RecvBufferSize int `yaml:"recvBufferSize"`

	// ReadBufferSize is the userspace buffer one datagram is read into;
	// it bounds the largest datagram Receive can return.
	ReadBufferSize int `yaml:"readBufferSize"`
}

var DefaultConfig = Config{
	RecvBufferSize: 64 * 1024,
	ReadBufferSize: 8 * 1024,
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return nil
}
