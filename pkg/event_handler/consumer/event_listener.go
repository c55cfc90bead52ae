package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/config"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
)

type EventListener struct {
	stateKey string
	topic    string
	consumer *Consumer
}

// IncomingMessage is the slice of a change-log record the listener cares
// about: which installation's configuration changed.
type IncomingMessage struct {
	Diff *struct {
		After *struct {
			Identifier string `json:"installationId"`
		} `json:"after"`
	} `json:"diff"`
}

func NewEventListener(stateKey string, portClient *cli.PortClient) (*EventListener, error) {
	logger.Info("Getting Consumer Information")
	credentials, err := portClient.GetKafkaCredentials()
	if err != nil {
		return nil, err
	}
	orgId, err := portClient.GetOrgId()
	if err != nil {
		return nil, err
	}

	c := &config.KafkaConfiguration{
		Brokers:                 config.KafkaConfig.Brokers,
		SecurityProtocol:        config.KafkaConfig.SecurityProtocol,
		AuthenticationMechanism: config.KafkaConfig.AuthenticationMechanism,
		KafkaSecurityEnabled:    config.KafkaConfig.KafkaSecurityEnabled,
		Username:                credentials.Username,
		Password:                credentials.Password,
		GroupID:                 orgId + ".sync-engine." + stateKey,
	}

	topic := orgId + ".change.log"
	instance, err := NewConsumer(c, nil)
	if err != nil {
		return nil, err
	}

	return &EventListener{
		stateKey: stateKey,
		topic:    topic,
		consumer: instance,
	}, nil
}

func shouldResync(stateKey string, message *IncomingMessage) bool {
	return message.Diff != nil &&
		message.Diff.After != nil &&
		message.Diff.After.Identifier != "" &&
		message.Diff.After.Identifier == stateKey
}

func (l *EventListener) Run(resync func()) error {
	logger.Info("Starting Kafka event listener")

	logger.Infow("Starting consumer for topic", "topic", l.topic)
	l.consumer.Consume(l.topic, func(value []byte) {
		incomingMessage := &IncomingMessage{}
		parsingError := json.Unmarshal(value, &incomingMessage)
		if parsingError != nil {
			logger.Errorw("error handling message", "error", parsingError.Error())
			utilruntime.HandleError(fmt.Errorf("error handling message: %s", parsingError.Error()))
		} else if shouldResync(l.stateKey, incomingMessage) {
			logger.Info("Changes detected. Resyncing...")
			resync()
		}
	}, nil)

	return nil
}
