package mqttc

import (
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Client is a thin wrapper around the paho MQTT client with fleet
// defaults. A nil Client is safe to publish through; messages are dropped.
type Client struct {
	Client mqtt.Client
	log    zerolog.Logger
}

// NewClient creates a client using the environment/default broker.
func NewClient(clientID string, logger zerolog.Logger) *Client {
	return NewClientWithBroker(clientID, "", logger)
}

// NewClientWithBroker lets callers override the MQTT broker address.
func NewClientWithBroker(clientID, broker string, logger zerolog.Logger) *Client {
	return NewClientWithHandler(clientID, broker, nil, logger)
}

// NewClientWithHandler lets callers provide an OnConnect handler, used by
// agents to (re)subscribe to their command topics.
func NewClientWithHandler(clientID, broker string, onConnect mqtt.OnConnectHandler, logger zerolog.Logger) *Client {
	if broker == "" {
		broker = os.Getenv("MQTT_BROKER")
		if broker == "" {
			broker = "tcp://127.0.0.1:1883"
		}
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		logger.Warn().Err(token.Error()).Str("broker", broker).Msg("mqtt connect failed")
	}
	return &Client{Client: c, log: logger}
}

func (c *Client) Publish(topic string, payload []byte) {
	c.publish(topic, payload, false)
}

// PublishRetained publishes with the retained flag so late subscribers see
// the latest value immediately.
func (c *Client) PublishRetained(topic string, payload []byte) {
	c.publish(topic, payload, true)
}

func (c *Client) publish(topic string, payload []byte, retained bool) {
	if c == nil || c.Client == nil {
		return
	}
	token := c.Client.Publish(topic, 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		c.log.Warn().Err(token.Error()).Str("topic", topic).Msg("mqtt publish failed")
	}
}

func (c *Client) Subscribe(topic string, handler mqtt.MessageHandler) {
	if c == nil || c.Client == nil {
		return
	}
	token := c.Client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		c.log.Warn().Err(token.Error()).Str("topic", topic).Msg("mqtt subscribe failed")
	}
}

func (c *Client) Disconnect() {
	if c == nil || c.Client == nil {
		return
	}
	c.Client.Disconnect(250)
}
