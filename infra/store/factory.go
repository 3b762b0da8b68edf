package store

import (
	"github.com/kilianp07/fleetsim/core/factory"
	"github.com/kilianp07/fleetsim/core/sim"
)

// init registers built-in result stores.
func init() {
	_ = Register("memory", func(map[string]any) (sim.ResultStore, error) {
		return &sim.MemoryStore{}, nil
	})

	_ = Register("csv", func(conf map[string]any) (sim.ResultStore, error) {
		var c CSVConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCSVStore(c)
	})

	_ = Register("jsonl", func(conf map[string]any) (sim.ResultStore, error) {
		var c JSONLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c)
	})

	_ = Register("rotating_jsonl", func(conf map[string]any) (sim.ResultStore, error) {
		c := JSONLConfig{MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 30}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(c)
	})

	_ = Register("sqlite", func(conf map[string]any) (sim.ResultStore, error) {
		var c SQLiteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c)
	})

	_ = Register("mqtt", func(conf map[string]any) (sim.ResultStore, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTStore(c)
	})
}
