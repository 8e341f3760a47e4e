package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type GroupOptions struct {
	ClientID     string
	FromOldest   bool // start a new group at the beginning of the topic
	DialTimeout  time.Duration
	KafkaVersion sarama.KafkaVersion
}

func NewGroup(brokers []string, groupID string, opts GroupOptions) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_6_0_0
	if opts.KafkaVersion != (sarama.KafkaVersion{}) {
		cfg.Version = opts.KafkaVersion
	}
	if opts.ClientID != "" {
		cfg.ClientID = opts.ClientID
	}
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	if opts.FromOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	cfg.Consumer.Return.Errors = true
	cfg.Net.DialTimeout = 5 * time.Second
	if opts.DialTimeout > 0 {
		cfg.Net.DialTimeout = opts.DialTimeout
	}
	return sarama.NewConsumerGroup(brokers, groupID, cfg)
}
