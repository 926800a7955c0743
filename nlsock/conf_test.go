package nlsock

import (
	"testing"

	"github.com/goccy/go-yaml"
)

func TestConfigDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Config
	}{
		{"empty document keeps defaults", "{}", DefaultConfig},
		{"partial override", "recvBufferSize: 131072",
			Config{RecvBufferSize: 131072, ReadBufferSize: DefaultConfig.ReadBufferSize}},
		{"full override", "recvBufferSize: 1024\nreadBufferSize: 2048",
			Config{RecvBufferSize: 1024, ReadBufferSize: 2048}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got Config
			if err := yaml.Unmarshal([]byte(test.raw), &got); err != nil {
				t.Fatalf("unmarshalling: %v", err)
			}
			if got != test.want {
				t.Errorf("got %+v, want %+v", got, test.want)
			}
		})
	}
}
