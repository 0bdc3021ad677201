// Package mqtt connects the strip to an MQTT broker as a Home Assistant light.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"lightstrip-controller/internal/config"
	"lightstrip-controller/internal/core"
	"lightstrip-controller/internal/light"
)

// publisher is the part of the paho client used for outgoing messages.
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Client bridges MQTT and the command queue.
type Client struct {
	client mqtt.Client
	pub    publisher
	cfg    config.MQTTConfig
	device config.DeviceConfig
	topics Topics

	commands *core.CommandChannel
	eventBus *core.EventBus
	effects  func() []string
	status   func() light.Status
	version  string
	log      *logrus.Entry
}

// Options carries what the client needs from the rest of the agent.
type Options struct {
	Commands *core.CommandChannel
	EventBus *core.EventBus
	Effects  func() []string
	Status   func() light.Status
	Version  string
	Logger   *logrus.Logger
}

// NewClient returns nil when MQTT is disabled.
func NewClient(cfg *config.Config, o Options) *Client {
	if !cfg.MQTT.Enabled {
		return nil
	}

	c := &Client{
		cfg:      cfg.MQTT,
		device:   cfg.Device,
		topics:   NewTopics(cfg.MQTT.Topic, cfg.Device.ID, cfg.MQTT.HADiscoveryPrefix),
		commands: o.Commands,
		eventBus: o.EventBus,
		effects:  o.Effects,
		status:   o.Status,
		version:  o.Version,
		log:      o.Logger.WithField("component", "mqtt"),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)

	opts.SetKeepAlive(cfg.MQTT.KeepAlive)
	opts.SetPingTimeout(5 * time.Second)

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	// Keep retrying the first connection so the agent survives a broker
	// that starts after it.
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOrderMatters(false)

	opts.SetWill(c.topics.Availability, string(AvailabilityPayload(false)), 1, true)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.log.WithError(err).Warn("Connection lost, retrying in background")
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.log.Info("Attempting to reconnect")
	})

	c.client = mqtt.NewClient(opts)
	c.pub = c.client
	return c
}

// Topics returns the topics in use.
func (c *Client) Topics() Topics { return c.topics }

// Connect starts the connection. With retries enabled an error here means a
// configuration problem rather than an unreachable broker.
func (c *Client) Connect() error {
	c.log.WithField("broker", c.cfg.Broker).Info("Starting connection loop")

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Run forwards status and effect list changes to the broker until ctx is done.
func (c *Client) Run(ctx context.Context) {
	sub := c.eventBus.Subscribe(core.StatusChangedEvent, core.EffectListChangedEvent)
	defer c.eventBus.Unsubscribe(sub, core.StatusChangedEvent, core.EffectListChangedEvent)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			switch ev.Type {
			case core.StatusChangedEvent:
				if st, ok := ev.Payload.(light.Status); ok {
					c.PublishStatus(st)
				}
			case core.EffectListChangedEvent:
				if names, ok := ev.Payload.([]string); ok && c.cfg.HADiscoveryEnabled {
					c.PublishDiscovery(names)
				}
			}
		}
	}
}

// Disconnect announces offline and closes the connection.
func (c *Client) Disconnect() {
	if !c.client.IsConnected() {
		return
	}
	c.log.Info("Disconnecting")

	token := c.client.Publish(c.topics.Availability, 1, true, AvailabilityPayload(false))
	if token.WaitTimeout(2 * time.Second) {
		if token.Error() != nil {
			c.log.WithError(token.Error()).Warn("Failed to publish offline status")
		}
	} else {
		c.log.Warn("Timed out publishing offline status")
	}

	c.client.Disconnect(250)
	c.log.Info("Disconnected")
}

// PublishStatus sends the retained state message.
func (c *Client) PublishStatus(st light.Status) {
	c.publish(c.topics.State, true, st.JSON())
}

// PublishDiscovery sends the retained Home Assistant config message.
func (c *Client) PublishDiscovery(effects []string) {
	payload, err := json.Marshal(NewDiscovery(c.device, c.topics, effects, c.version))
	if err != nil {
		c.log.WithError(err).Error("Failed to encode discovery message")
		return
	}
	c.publish(c.topics.Discovery, true, payload)
	c.log.WithField("topic", c.topics.Discovery).Info("HA discovery sent")
}

func (c *Client) publish(topic string, retained bool, payload []byte) {
	if c.pub == nil || !c.pub.IsConnected() {
		return
	}
	token := c.pub.Publish(topic, 1, retained, payload)

	// Do not block the caller, but do not leak the wait either.
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			c.log.WithField("topic", topic).Warn("Timeout publishing")
			return
		}
		if token.Error() != nil {
			c.log.WithError(token.Error()).WithField("topic", topic).Warn("Publish error")
		}
	}()
}

// onConnect runs on a paho goroutine after every (re)connect.
func (c *Client) onConnect(client mqtt.Client) {
	c.log.Info("Connected to broker")

	if token := client.Subscribe(c.topics.Set, 1, c.handleSet); token.Wait() && token.Error() != nil {
		c.log.WithError(token.Error()).WithField("topic", c.topics.Set).Error("Subscribe failed")
	} else {
		c.log.WithField("topic", c.topics.Set).Info("Subscribed")
	}

	go func() {
		c.publish(c.topics.Availability, true, AvailabilityPayload(true))
		if c.cfg.HADiscoveryEnabled {
			c.PublishDiscovery(c.effects())
		}
		c.PublishStatus(c.status())
	}()
}

func (c *Client) handleSet(_ mqtt.Client, msg mqtt.Message) {
	c.log.WithField("payload", string(msg.Payload())).Debug("Command received")
	if c.commands.Submit(core.LightCommand(core.SourceMQTT, msg.Payload())) {
		c.log.Warn("Command queue full, dropped the oldest command")
	}
}
