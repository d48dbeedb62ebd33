package mqttpub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pointlessduffin-21/snmp-agent/pkg/collector/snmpcollect"
	"github.com/pointlessduffin-21/snmp-agent/pkg/config"
	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	cur := nextBackoff(0)
	assert.Equal(t, 5*time.Second, cur)

	cur = nextBackoff(cur)
	assert.Equal(t, 10*time.Second, cur)
	cur = nextBackoff(cur)
	assert.Equal(t, 20*time.Second, cur)

	for cur < maxBackoff {
		cur = nextBackoff(cur)
	}
	assert.Equal(t, 300*time.Second, cur)
	assert.Equal(t, 300*time.Second, nextBackoff(cur))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "fan_speed", slug("Fan Speed"))
	assert.Equal(t, "temp", slug("temp"))
	assert.Equal(t, "multi_word_name", slug("Multi Word Name"))
}

func TestMetricValueString(t *testing.T) {
	assert.Equal(t, "42", metricValueString(model.MetricValue{Kind: model.MetricInteger, Int: 42}))
	assert.Equal(t, "1234567890", metricValueString(model.MetricValue{Kind: model.MetricCounter64, Counter: 1234567890}))
	assert.Equal(t, "idle", metricValueString(model.MetricValue{Kind: model.MetricString, Str: "idle"}))
}

func newTestPublisher() *Publisher {
	store := fleetstore.New()
	snmp := snmpcollect.New("public", 161, 0, 0)
	cfg := config.MQTTConfig{Enabled: true, Host: "localhost", Port: 1883, TopicPrefix: "snmp-agent"}
	return New(cfg, store, snmp)
}

func TestDeviceConfigRegistry(t *testing.T) {
	p := newTestPublisher()
	assert.Empty(t, p.DeviceConfigs())

	p.SetDeviceConfig("10.0.0.1", DeviceConfig{Enabled: true, Topic: "custom/topic"})
	cfgs := p.DeviceConfigs()
	assert.Len(t, cfgs, 1)
	assert.Equal(t, "custom/topic", cfgs["10.0.0.1"].Topic)

	p.RemoveDeviceConfig("10.0.0.1")
	assert.Empty(t, p.DeviceConfigs())
}

func TestStateTransitions(t *testing.T) {
	p := newTestPublisher()
	assert.Equal(t, StateDisconnected, p.State())

	p.setState(StateConnecting)
	assert.Equal(t, StateConnecting, p.State())

	p.setState(StateConnected)
	assert.Equal(t, StateConnected, p.State())
}

func TestDefaultTopic(t *testing.T) {
	assert.Equal(t, "snmp-agent/devices/10.0.0.5", defaultTopic("10.0.0.5"))
}

func TestPublishDeviceSkipsWithoutSnapshot(t *testing.T) {
	p := newTestPublisher()
	// No snapshot registered for this IP and no custom OIDs configured, so
	// publishDevice should be a no-op rather than panicking on a nil lookup.
	p.publishDevice(nil, "10.0.0.1", DeviceConfig{Enabled: true, PublishCPU: true})
}

func TestTempOrNil(t *testing.T) {
	assert.Nil(t, tempOrNil(nil))
	v := 42.5
	assert.Equal(t, 42.5, tempOrNil(&v))
}
