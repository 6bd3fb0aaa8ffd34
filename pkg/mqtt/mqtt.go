package mqtt

import (
	"context"
	"fmt"
	"sync"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// StartBroker starts the embedded broker. Telemetry is published through its
// inline client. The broker is closed when ctx is done.
func StartBroker(ctx context.Context, wg *sync.WaitGroup, address string) (*mqttv2.Server, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections.
	_ = server.AddHook(new(auth.AllowHook), nil)

	if address != "" {
		tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
		if err := server.AddListener(tcp); err != nil {
			return server, fmt.Errorf("error adding mqtt listener %s: %w", address, err)
		}
	}

	if err := server.Serve(); err != nil {
		return server, fmt.Errorf("error starting mqtt broker: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		server.Close()
	}()
	return server, nil
}

// NewEmbedded publishes through the inline client of an embedded broker.
func NewEmbedded(server *mqttv2.Server, prefix string) *Publisher {
	return newPublisher(prefix, func(topic string, payload []byte, retain bool) error {
		return server.Publish(topic, payload, retain, 0)
	})
}
