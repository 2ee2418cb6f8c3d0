// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/momentics/clink/reactor"
)

// Config holds all server-side configuration parameters.
// Field tags match the keys of the JSON config file.
type Config struct {
	Listen        string `json:"listen"`         // TCP bind address, e.g. ":9000"
	InputWorkers  int    `json:"input_workers"`  // reactor read callback workers
	OutputWorkers int    `json:"output_workers"` // reactor write callback workers
	MaxEvents     int    `json:"max_events"`     // readiness events per wait
	RecvSize      int    `json:"recv_size"`      // bytes per receive
	Shards        int    `json:"shards"`         // client registry shards
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	rc := reactor.DefaultConfig()
	return &Config{
		Listen:        ":9000",
		InputWorkers:  rc.InputWorkers,
		OutputWorkers: rc.OutputWorkers,
		MaxEvents:     rc.MaxEvents,
		RecvSize:      256,
		Shards:        16,
	}
}

// ReactorConfig derives the selector configuration.
func (c *Config) ReactorConfig() *reactor.Config {
	return &reactor.Config{
		InputWorkers:  c.InputWorkers,
		OutputWorkers: c.OutputWorkers,
		MaxEvents:     c.MaxEvents,
	}
}

// ParseJSONConfig overlays the JSON file at path onto c. Keys missing from
// the file keep their current values.
func ParseJSONConfig(c *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(c); err != nil {
		return errors.Wrapf(err, "decode config %s", path)
	}
	return nil
}
