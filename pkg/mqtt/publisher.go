// Package mqtt publishes controller telemetry, either through an embedded
// broker or to an external broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/nergy-se/antipendel/pkg/state"
	"github.com/sirupsen/logrus"
)

// Topics below the configured prefix.
const (
	TopicState  = "state"
	TopicInfo   = "info"
	TopicStatus = "status"
	TopicValue  = "value"
)

type sendFunc func(topic string, payload []byte, retain bool) error

// Publisher implements controller.Publisher. Errors are logged and never
// returned to the control loop.
type Publisher struct {
	prefix string
	send   sendFunc
	close  func()
}

func newPublisher(prefix string, send sendFunc) *Publisher {
	return &Publisher{
		prefix: prefix,
		send:   send,
	}
}

func (p *Publisher) topic(parts ...string) string {
	t := p.prefix
	for _, part := range parts {
		t += "/" + part
	}
	return t
}

func (p *Publisher) publish(topic string, payload []byte, retain bool) {
	if err := p.send(topic, payload, retain); err != nil {
		logrus.WithError(err).WithField("topic", topic).Error("mqtt: error publishing")
	}
}

func (p *Publisher) PublishState(name string) {
	p.publish(p.topic(TopicState), []byte(name), true)
}

func (p *Publisher) PublishInfo(msg string) {
	p.publish(p.topic(TopicInfo), []byte(msg), false)
}

func (p *Publisher) PublishValue(key string, v float64) {
	p.publish(p.topic(TopicValue, key), []byte(strconv.FormatFloat(v, 'f', 2, 64)), true)
}

// PublishStatus publishes the full snapshot as json and every numeric field
// on its own topic below status.
func (p *Publisher) PublishStatus(s state.State) {
	b, err := json.Marshal(s)
	if err != nil {
		logrus.WithError(err).Error("mqtt: error encoding status")
		return
	}
	p.publish(p.topic(TopicStatus), b, true)

	m := s.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.publish(p.topic(TopicStatus, k), []byte(formatMetric(m[k])), true)
	}
}

func formatMetric(v interface{}) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprint(v)
}

func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}
