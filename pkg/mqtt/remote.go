package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// NewRemote connects to an external broker. Publishes are not waited for so
// a slow broker never delays a tick.
func NewRemote(broker, prefix string) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(prefix).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(prefix+"/"+TopicState, "OFFLINE", 1, true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p := newPublisher(prefix, func(topic string, payload []byte, retain bool) error {
		token := client.Publish(topic, 0, retain, payload)
		go func() {
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				logrus.WithError(token.Error()).WithField("topic", topic).Error("mqtt: publish failed")
			}
		}()
		return nil
	})
	p.close = func() {
		client.Disconnect(1000)
	}
	return p, nil
}
