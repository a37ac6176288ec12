package kafka

import (
	"context"

	"github.com/Shopify/sarama"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
)

type consumerGroupHandler struct{}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	logger.Info("[kafka] consumer group setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("[kafka] consumer group cleanup")
	return nil
}

// ConsumeClaim routes each record to the topic's registered handler.
// Handler errors are logged and the offset committed anyway: the feed
// is best-effort, a poison record must not wedge the partition.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		handler, err := GetHandler(msg.Topic)
		if err != nil {
			logger.Warnf("[kafka] %v", err)
		} else if err := handler(msg.Topic, msg.Key, msg.Value); err != nil {
			logger.Warnf("[kafka] handler error topic=%s offset=%d: %v", msg.Topic, msg.Offset, err)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

// StartConsumerGroup runs the group loop until ctx is cancelled.
// Blocking; run it in a goroutine.
func (k *Client) StartConsumerGroup(ctx context.Context, topics []string) error {
	group, err := sarama.NewConsumerGroupFromClient(k.cfg.GroupID, k.c)
	if err != nil {
		return err
	}
	defer func() { _ = group.Close() }()

	go func() {
		for err := range group.Errors() {
			logger.Warnf("[kafka] consumer group error: %v", err)
		}
	}()

	handler := &consumerGroupHandler{}
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			logger.Warnf("[kafka] consume error: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
