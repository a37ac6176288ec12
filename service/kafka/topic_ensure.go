package kafka

import (
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
)

// EnsureTopics creates the gateway topics if the broker does not have
// them yet. Single-broker defaults; tune partitions/rf at deploy time.
func (k *Client) EnsureTopics(topics []string) error {
	admin, err := sarama.NewClusterAdminFromClient(k.c)
	if err != nil {
		return errors.Wrap(err, "cluster admin")
	}
	for _, t := range topics {
		desc, derr := admin.DescribeTopics([]string{t})
		if derr == nil && len(desc) == 1 && desc[0].Err == sarama.ErrNoError {
			logger.Infof("[kafka] topic exists: %s (partitions=%d)", t, len(desc[0].Partitions))
			continue
		}
		td := &sarama.TopicDetail{
			NumPartitions:     8,
			ReplicationFactor: 1,
			ConfigEntries: map[string]*string{
				"cleanup.policy":                 strPtr("delete"),
				"min.insync.replicas":            strPtr("1"),
				"unclean.leader.election.enable": strPtr("false"),
				"compression.type":               strPtr("producer"),
			},
		}
		if cerr := admin.CreateTopic(t, td, false); cerr != nil {
			var te *sarama.TopicError
			if errors.As(cerr, &te) && te.Err == sarama.ErrTopicAlreadyExists {
				continue
			}
			return errors.Wrapf(cerr, "create topic %s", t)
		}
		logger.Infof("[kafka] topic created: %s", t)
	}
	return nil
}

func strPtr(s string) *string { return &s }
