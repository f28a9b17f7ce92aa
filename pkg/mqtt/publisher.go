package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-equipment-api/internal/config"
	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	// QoS 1: the broker acknowledges every event at least once.
	eventQoS       = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Publisher forwards alert events to an MQTT broker under
// <prefix>/alerts/<event>.
type Publisher struct {
	client paho.Client
	prefix string
}

// NewPublisher connects to the broker described by cfg.
func NewPublisher(cfg config.MQTTConfig) (*Publisher, error) {
	log := logger.WithComponent("mqtt")

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(paho.Client) {
			log.WithField("broker", cfg.BrokerURL).Info("connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.BrokerURL, err)
	}

	return NewPublisherWithClient(client, cfg.TopicPrefix), nil
}

// NewPublisherWithClient wraps an existing client.
func NewPublisherWithClient(client paho.Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
	}
}

// Topic returns the topic an event kind is published on.
func (p *Publisher) Topic(kind models.AlertEventKind) string {
	event := strings.TrimPrefix(string(kind), "alert.")
	if p.prefix == "" {
		return "alerts/" + event
	}
	return p.prefix + "/alerts/" + event
}

// PublishAlertEvent sends the event as JSON and waits for the broker ack.
func (p *Publisher) PublishAlertEvent(ctx context.Context, event models.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	token := p.client.Publish(p.Topic(event.Event), eventQoS, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return ErrPublishTimeout
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Event, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight messages to finish.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
