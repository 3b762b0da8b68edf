package store

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/kilianp07/fleetsim/core/model"
	coremqtt "github.com/kilianp07/fleetsim/core/mqtt"
	inframqtt "github.com/kilianp07/fleetsim/infra/mqtt"
)

// MQTTConfig configures an MQTTStore.
type MQTTConfig struct {
	Client      inframqtt.Config `json:"client"`
	TopicPrefix string           `json:"topic_prefix"`
	RunID       string           `json:"run_id"`
}

// MQTTStore publishes every dispatched chain to <prefix>/<run_id>/legs and
// the fleet summary to <prefix>/<run_id>/fleet as JSON arrays.
type MQTTStore struct {
	pub        coremqtt.Publisher
	legsTopic  string
	fleetTopic string
}

// NewMQTTStore connects a Paho client and returns the store.
func NewMQTTStore(cfg MQTTConfig) (*MQTTStore, error) {
	cli, err := inframqtt.NewPahoClient(cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("mqtt store: %w", err)
	}
	return NewMQTTStoreWithPublisher(cli, cfg.TopicPrefix, cfg.RunID), nil
}

// NewMQTTStoreWithPublisher builds a store on an existing publisher. An empty
// prefix defaults to fleetsim. A prefix holding the run placeholder is used
// as is instead of being suffixed with the run id.
func NewMQTTStoreWithPublisher(pub coremqtt.Publisher, prefix, runID string) *MQTTStore {
	if prefix == "" {
		prefix = "fleetsim"
	}
	base := path.Join(prefix, runID)
	if strings.Contains(prefix, RunPlaceholder) {
		base = expand(prefix, runID)
	}
	return &MQTTStore{pub: pub, legsTopic: base + "/legs", fleetTopic: base + "/fleet"}
}

// WriteLegs publishes the chain as one message.
func (s *MQTTStore) WriteLegs(legs []model.Trip) error {
	return s.publish(s.legsTopic, legs)
}

// WriteFleet publishes the fleet summary.
func (s *MQTTStore) WriteFleet(vehicles []model.Vehicle) error {
	return s.publish(s.fleetTopic, vehicles)
}

func (s *MQTTStore) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.pub.Publish(topic, payload)
}

// Close disconnects the publisher.
func (s *MQTTStore) Close() error {
	s.pub.Disconnect()
	return nil
}
