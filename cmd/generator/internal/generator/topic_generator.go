package generator

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	topicReadyAttempts = 5
	topicReadyBackoff  = 200 * time.Millisecond
)

// TopicCreator makes sure the tick topic exists before the feed starts writing.
type TopicCreator struct {
	logger *zap.Logger
	dialer KafkaDialer
	sleep  func(time.Duration)
}

func NewTopicCreator(logger *zap.Logger, dialer KafkaDialer, sleep func(time.Duration)) *TopicCreator {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &TopicCreator{
		logger: logger,
		dialer: dialer,
		sleep:  sleep,
	}
}

// Create asks the cluster controller for topicName and waits until it has
// partitions. It returns false if the topic never became readable.
func (tc *TopicCreator) Create(ctx context.Context, brokers []string, topicName string, partitions int) bool {
	var conn KafkaConn
	var err error

	for _, addr := range brokers {
		conn, err = tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
	}
	if conn == nil {
		tc.logger.Warn("Failed to dial brokers", zap.Strings("brokers", brokers), zap.Error(err))
		return false
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		tc.logger.Warn("Failed to get controller", zap.Error(err))
		return false
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		tc.logger.Warn("Failed to dial controller", zap.Error(err))
		return false
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		tc.logger.Info("Topic creation finished (might already exist)", zap.Error(err))
	} else {
		tc.logger.Info("Topic creation request sent", zap.String("topic", topicName), zap.Int("partitions", partitions))
	}

	return tc.waitForTopic(conn, topicName)
}

func (tc *TopicCreator) waitForTopic(conn KafkaConn, topicName string) bool {
	tc.logger.Info("Waiting for topic initialization...", zap.String("topic", topicName))
	for i := 0; i < topicReadyAttempts; i++ {
		tc.sleep(topicReadyBackoff)
		partitions, err := conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Topic is ready!", zap.Int("partitions", len(partitions)))
			return true
		}
	}
	tc.logger.Warn("Timed out waiting for topic")
	return false
}
