package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/netscope/nlwire/nlsock"
)

func TestReadConf(t *testing.T) {
	tests := map[string]*Config{
		"testdata/defaults.yaml": &DefaultConfig,
		"testdata/populated.yaml": {
			Family:  "inet",
			Socket:  &nlsock.Config{RecvBufferSize: 131072, ReadBufferSize: 16384},
			Sockets: &SocketsConfig{Protocol: "udp", States: 4096, Procs: true},
			Monitor: &MonitorConfig{Groups: []string{"route", "link"}},
		},
	}

	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			got, err := ReadConf(path)
			if err != nil {
				t.Fatalf("error parsing %q: %v", path, err)
			}
			t.Logf("%s:\n%s", path, got)
			if !cmp.Equal(got, want) {
				t.Errorf("configurations differ: %s", cmp.Diff(got, want))
			}
		})
	}
}
