// Package mqttpub republishes fleet metrics to an external MQTT broker and
// polls per-device custom OIDs for rebroadcast (spec.md §4.6), grounded on
// original_source/src/services/mqtt_broker.py (publish shapes) and
// original_source/src/web/api.py's _mqtt_oid_publishing_loop (custom-OID
// topic/payload construction, rebroadcast wiring). Uses
// github.com/eclipse/paho.golang/paho directly rather than autopaho, since
// the spec demands an exact, testable 5s→300s doubling backoff rather than
// autopaho's own opaque reconnect policy.
package mqttpub

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/pointlessduffin-21/snmp-agent/internal/log"
	"github.com/pointlessduffin-21/snmp-agent/pkg/collector/snmpcollect"
	"github.com/pointlessduffin-21/snmp-agent/pkg/config"
	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

const (
	initialBackoff = 5 * time.Second
	maxBackoff     = 300 * time.Second
	publishCadence = 5 * time.Second
)

// State is one of the three connection states from spec §4.6.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// CustomOIDConfig is one polled-and-republished OID entry for a device.
type CustomOIDConfig struct {
	OID             string
	Name            string
	TopicSuffix     string
	IntervalSeconds int
	SNMPRebroadcast bool
	RebroadcastOID  string
}

// DeviceConfig is the per-device MQTT publishing configuration, normally
// persisted by an external KV store keyed by device IP (spec §4.6/§6).
type DeviceConfig struct {
	Enabled        bool
	Topic          string
	PublishCPU     bool
	PublishMemory  bool
	PublishStorage bool
	PublishWidgets bool
	CustomOIDs     []CustomOIDConfig
}

func defaultTopic(ip string) string { return "snmp-agent/devices/" + ip }

// Publisher owns one MQTT connection and the per-device configuration
// registry, and runs the republish loop.
type Publisher struct {
	cfg   config.MQTTConfig
	store *fleetstore.Store
	snmp  *snmpcollect.Collector

	mu      sync.Mutex
	devices map[string]DeviceConfig
	state   State
	backoff time.Duration
	client  *paho.Client
	conn    net.Conn
}

// New returns a Publisher; call Run to connect and start the republish loop.
func New(cfg config.MQTTConfig, store *fleetstore.Store, snmp *snmpcollect.Collector) *Publisher {
	return &Publisher{
		cfg:     cfg,
		store:   store,
		snmp:    snmp,
		devices: make(map[string]DeviceConfig),
		state:   StateDisconnected,
		backoff: initialBackoff,
	}
}

// SetDeviceConfig upserts the MQTT publishing configuration for a device IP.
func (p *Publisher) SetDeviceConfig(ip string, dc DeviceConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices[ip] = dc
}

// RemoveDeviceConfig deletes a device's configuration.
func (p *Publisher) RemoveDeviceConfig(ip string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.devices, ip)
}

// DeviceConfigs returns a copy of every configured device, keyed by IP.
func (p *Publisher) DeviceConfigs() map[string]DeviceConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]DeviceConfig, len(p.devices))
	for ip, dc := range p.devices {
		out[ip] = dc
	}
	return out
}

// State returns the current connection state.
func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Publisher) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run connects and drives the reconnect loop and the 5-second publish loop
// until ctx is cancelled. If MQTT is disabled in config, Run returns
// immediately (spec §4.6 has no behavior defined for a disabled broker).
func (p *Publisher) Run(ctx context.Context) {
	if !p.cfg.Enabled {
		log.Infof("mqttpub: disabled in config, not starting")
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.reconnectLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		p.publishLoop(ctx)
	}()
	wg.Wait()

	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// nextBackoff doubles cur, capped at maxBackoff; a non-positive cur starts
// at initialBackoff.
func nextBackoff(cur time.Duration) time.Duration {
	if cur <= 0 {
		return initialBackoff
	}
	v := cur * 2
	if v > maxBackoff {
		return maxBackoff
	}
	return v
}

// reconnectLoop wakes every `backoff` seconds; if already connected it does
// nothing this tick, otherwise it attempts to connect, growing backoff on
// failure and resetting it to 5s on success (spec §4.6).
func (p *Publisher) reconnectLoop(ctx context.Context) {
	for {
		p.mu.Lock()
		wait := p.backoff
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if p.State() == StateConnected {
			continue
		}

		p.setState(StateConnecting)
		if err := p.connect(ctx); err != nil {
			log.Warnf("mqttpub: connect to %s:%d failed: %v", p.cfg.Host, p.cfg.Port, err)
			p.setState(StateDisconnected)
			p.mu.Lock()
			p.backoff = nextBackoff(p.backoff)
			p.mu.Unlock()
			continue
		}

		p.setState(StateConnected)
		p.mu.Lock()
		p.backoff = initialBackoff
		p.mu.Unlock()
		log.Infof("mqttpub: connected to %s:%d", p.cfg.Host, p.cfg.Port)
	}
}

func (p *Publisher) connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	client := paho.NewClient(paho.ClientConfig{Conn: conn})
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ack, err := client.Connect(connCtx, &paho.Connect{
		ClientID:   "snmp-agent",
		CleanStart: true,
		KeepAlive:  30,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("mqtt connect: %w", err)
	}
	if ack.ReasonCode != 0 {
		conn.Close()
		return fmt.Errorf("mqtt connect refused: reason %d", ack.ReasonCode)
	}

	p.mu.Lock()
	p.client = client
	p.conn = conn
	p.mu.Unlock()
	return nil
}

// publishLoop iterates enabled device configs every 5 seconds (spec §4.6
// "Loop cadence").
func (p *Publisher) publishLoop(ctx context.Context) {
	ticker := time.NewTicker(publishCadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishTick(ctx)
		}
	}
}

func (p *Publisher) publishTick(ctx context.Context) {
	if p.State() != StateConnected {
		return
	}
	for ip, dc := range p.DeviceConfigs() {
		if !dc.Enabled {
			continue
		}
		p.publishDevice(ctx, ip, dc)
	}
}

func (p *Publisher) publishDevice(ctx context.Context, ip string, dc DeviceConfig) {
	topic := dc.Topic
	if topic == "" {
		topic = defaultTopic(ip)
	}

	if snap, ok := p.store.Snapshot(ip); ok {
		now := time.Now().Format(time.RFC3339)
		if dc.PublishCPU {
			p.publishJSON(ctx, topic+"/cpu", map[string]any{
				"usage_percent": snap.CPU.UsagePercent,
				"temp_c":        tempOrNil(snap.CPU.TempC),
				"load_1m":       snap.CPU.Load1,
				"healthy":       snap.CPU.IsHealthy(),
				"timestamp":     now,
			})
		}
		if dc.PublishMemory {
			const gib = 1024 * 1024 * 1024
			p.publishJSON(ctx, topic+"/memory", map[string]any{
				"total_gb":      float64(snap.Memory.TotalBytes) / gib,
				"used_gb":       float64(snap.Memory.UsedBytes) / gib,
				"usage_percent": snap.Memory.UsagePercent,
				"timestamp":     now,
			})
		}
		if dc.PublishStorage && len(snap.Storage.Devices) > 0 {
			const gib = 1024 * 1024 * 1024
			maxUsage := 0.0
			devices := make([]map[string]any, 0, len(snap.Storage.Devices))
			for _, d := range snap.Storage.Devices {
				if d.UsagePercent > maxUsage {
					maxUsage = d.UsagePercent
				}
				devices = append(devices, map[string]any{
					"mount":   d.MountPoint,
					"usage":   d.UsagePercent,
					"free_gb": float64(d.FreeBytes) / gib,
				})
			}
			p.publishJSON(ctx, topic+"/storage", map[string]any{
				"max_usage_percent": maxUsage,
				"devices":           devices,
				"timestamp":         now,
			})
		}
	}

	for _, oc := range dc.CustomOIDs {
		p.publishCustomOID(ctx, ip, topic, oc)
	}
}

func tempOrNil(t *float64) any {
	if t == nil {
		return nil
	}
	return *t
}

func (p *Publisher) publishCustomOID(ctx context.Context, ip, baseTopic string, oc CustomOIDConfig) {
	value, ok := p.snmp.Get(ip, oc.OID)
	if !ok {
		return
	}

	valueStr := metricValueString(value)
	topic := oc.TopicSuffix
	if topic != "" {
		topic = baseTopic + "/" + topic
	} else {
		topic = baseTopic + "/oid/" + slug(oc.Name)
	}

	p.publishJSON(ctx, topic, map[string]any{
		"oid":       oc.OID,
		"name":      oc.Name,
		"value":     valueStr,
		"device_ip": ip,
		"timestamp": time.Now().Format(time.RFC3339),
	})

	if oc.SNMPRebroadcast && oc.RebroadcastOID != "" {
		p.store.UpdateCustomMetric(ip, oc.RebroadcastOID, value)
	}
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

func metricValueString(v model.MetricValue) string {
	switch v.Kind {
	case model.MetricInteger:
		return fmt.Sprintf("%d", v.Int)
	case model.MetricCounter64:
		return fmt.Sprintf("%d", v.Counter)
	default:
		return v.Str
	}
}

// publishJSON marshals payload to JSON and sends it via publish at QoS 0.
// A marshal failure is logged and nothing is sent. Any publish failure marks the connection disconnected so the reconnect loop
// takes over; the scheduler keeps running (spec §4.6).
func (p *Publisher) publishJSON(ctx context.Context, topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warnf("mqttpub: marshal payload for %s: %v", topic, err)
		return
	}
	p.publish(ctx, topic, body)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Publish(pubCtx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     0,
	}); err != nil {
		log.Warnf("mqttpub: publish to %s failed: %v", topic, err)
		p.setState(StateDisconnected)
	}
}
