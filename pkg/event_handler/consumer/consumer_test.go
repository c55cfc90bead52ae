package consumer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/port-labs/port-sync-engine/pkg/config"
)

type Fixture struct {
	t                 *testing.T
	mockKafkaConsumer *MockConsumer
	consumer          *Consumer
	topic             string
}

type MockConsumer struct {
	pollData kafka.Event
	close    func()
}

func (m *MockConsumer) SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) (err error) {
	_ = rebalanceCb(nil, kafka.AssignedPartitions{
		Partitions: []kafka.TopicPartition{
			{
				Topic:     &topics[0],
				Offset:    0,
				Partition: 0,
				Metadata:  nil,
				Error:     nil,
			},
		},
	})
	return nil
}

func (m *MockConsumer) Poll(timeoutMs int) (event kafka.Event) {
	// The consume loop polls forever, so close after the first delivery to
	// keep the test quiet.
	defer func() {
		m.close()
	}()
	return m.pollData
}

func (m *MockConsumer) Commit() (offsets []kafka.TopicPartition, err error) {
	return nil, nil
}

func (m *MockConsumer) Close() (err error) {
	return nil
}

func NewFixture(t *testing.T) *Fixture {
	mock := &MockConsumer{}
	consumer, err := NewConsumer(&config.KafkaConfiguration{}, mock)
	mock.close = consumer.Close
	if err != nil {
		t.Fatalf("Error creating consumer: %v", err)
	}

	return &Fixture{
		t:                 t,
		mockKafkaConsumer: mock,
		consumer:          consumer,
		topic:             "test-topic",
	}
}

func (f *Fixture) Produce(t *testing.T, value []byte) {
	f.mockKafkaConsumer.pollData = &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &f.topic, Partition: 0},
		Value:          value,
	}
}

func (f *Fixture) Consume(handler JsonHandler) {
	readyChan := make(chan bool)
	go f.consumer.Consume(f.topic, handler, readyChan)
	<-readyChan
}

type MockJsonHandler struct {
	CapturedValue []byte
}

func (m *MockJsonHandler) HandleJson(value []byte) {
	m.CapturedValue = value
}

func TestConsumer_HandleJson(t *testing.T) {
	f := NewFixture(t)
	mockHandler := &MockJsonHandler{}

	f.Consume(mockHandler.HandleJson)

	f.Produce(t, []byte("test-value"))
	assert.Eventually(t, func() bool {
		return len(mockHandler.CapturedValue) > 0
	}, time.Second*5, time.Millisecond*100)
}

func TestShouldResync(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{
			name:    "matching installation id",
			payload: `{"diff": {"after": {"installationId": "my-state"}}}`,
			want:    true,
		},
		{
			name:    "different installation id",
			payload: `{"diff": {"after": {"installationId": "someone-else"}}}`,
			want:    false,
		},
		{
			name:    "empty installation id",
			payload: `{"diff": {"after": {"installationId": ""}}}`,
			want:    false,
		},
		{
			name:    "missing after side",
			payload: `{"diff": {}}`,
			want:    false,
		},
		{
			name:    "missing diff",
			payload: `{"action": "noop"}`,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message := &IncomingMessage{}
			require.NoError(t, json.Unmarshal([]byte(tt.payload), message))
			assert.Equal(t, tt.want, shouldResync("my-state", message))
		})
	}
}
