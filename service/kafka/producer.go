package kafka

import (
	"github.com/Shopify/sarama"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
	safe "github.com/Stormrider66/hockey-hub-sub043/tools/safe"
)

// AsyncProducer is the fire-and-forget audit sink. It satisfies the
// gateway's EventProducer interface: Emit never blocks the event path,
// failures are logged and dropped.
type AsyncProducer struct {
	p sarama.AsyncProducer
}

func (k *Client) NewAsyncProducer() (*AsyncProducer, error) {
	p, err := sarama.NewAsyncProducerFromClient(k.c)
	if err != nil {
		return nil, err
	}
	ap := &AsyncProducer{p: p}
	safe.Go(ap.drain)
	return ap, nil
}

func (ap *AsyncProducer) drain() {
	for {
		select {
		case msg, ok := <-ap.p.Successes():
			if !ok {
				return
			}
			logger.Debugf("[kafka] sent topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
		case err, ok := <-ap.p.Errors():
			if !ok {
				return
			}
			logger.Warnf("[kafka] async send error: %v", err)
		}
	}
}

func (ap *AsyncProducer) Emit(topic string, value []byte) {
	ap.p.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
}

func (ap *AsyncProducer) Close() error { return ap.p.Close() }
