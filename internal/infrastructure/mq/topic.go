package mq

import (
	"errors"
	"net"
	"strconv"

	"team_chat_server/internal/config"

	"github.com/segmentio/kafka-go"
)

// EnsureTopic 连接 controller 创建事件 topic，已存在时 Kafka 返回的错误被忽略
func EnsureTopic(cfg *config.KafkaConfig, partitions int) error {
	conn, err := kafka.Dial("tcp", cfg.HostPort)
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	ctrlConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.EventTopic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return err
	}
	return nil
}
