package comms

import (
	"context"
	"encoding/json"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"time"
)

const (
	TELEMETRY_PERIOD  = 500 * time.Millisecond
	TELEMETRY_TIMEOUT = 2 * time.Second
)

// Publisher is the part of mqtt.Client telemetry needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

func DialMQTT(broker, clientID string, log *zap.SugaredLogger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Infow("connected to mqtt broker", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnw("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	// with connect retry enabled the token only completes once connected
	if token.WaitTimeout(TELEMETRY_TIMEOUT) && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "unable to connect to %s", broker)
	}
	return client, nil
}

// Telemetry publishes a JSON snapshot of the vehicle to <topic>/state.
type Telemetry struct {
	client Publisher
	topic  string
	state  func() interface{}
	log    *zap.SugaredLogger
}

func NewTelemetry(client Publisher, topic string, state func() interface{}, log *zap.SugaredLogger) *Telemetry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Telemetry{client: client, topic: topic, state: state, log: log}
}

func (t *Telemetry) Publish() error {
	payload, err := json.Marshal(t.state())
	if err != nil {
		return errors.Wrap(err, "unable to encode state")
	}

	token := t.client.Publish(t.topic+"/state", 0, false, payload)
	if !token.WaitTimeout(TELEMETRY_TIMEOUT) {
		return errors.Errorf("publish to %s timed out", t.topic)
	}
	return errors.Wrap(token.Error(), "unable to publish state")
}

// Run publishes every period until ctx is done. Failures are logged and retried next period.
func (t *Telemetry) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Publish(); err != nil {
				t.log.Debugw("telemetry", "error", err)
			}
		}
	}
}
