package server

import (
	"context"
	"encoding/json"

	"lottery-service/internal/biz"
	"lottery-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer consumes spin events from RocketMQ and archives them.
type MQConsumerServer struct {
	c       rocketmq.PushConsumer
	archive *biz.ArchiveUseCase
	topic   string
	log     *log.Helper
	enabled bool
}

// NewMQConsumerServer creates a RocketMQ consumer server
func NewMQConsumerServer(c *conf.Bootstrap, archive *biz.ArchiveUseCase, logger log.Logger) *MQConsumerServer {
	helper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{log: helper, enabled: false}
	}
	mq := c.Data.Rocketmq

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(mq.NameServers)),
		consumer.WithGroupName(mq.GroupName),
		consumer.WithRetry(int(mq.RetryTimes)),
		consumer.WithConsumeMessageBatchMaxSize(100),
	)
	if err != nil {
		helper.Errorf("init consumer error: %v", err)
		return &MQConsumerServer{log: helper, enabled: false}
	}

	return &MQConsumerServer{
		c:       r,
		archive: archive,
		topic:   mq.Topic,
		log:     helper,
		enabled: true,
	}
}

// Start starts the consumer
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.topic)

	// RocketMQ being down must not keep the HTTP API from serving
	if err := s.c.Subscribe(s.topic, consumer.MessageSelector{}, s.handler); err != nil {
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.topic, err)
		return nil
	}
	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}
	return nil
}

// Stop stops the consumer
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	events := decodeSpinEvents(s.log, msgs)
	if len(events) == 0 {
		return consumer.ConsumeSuccess, nil
	}
	if err := s.archive.Archive(ctx, events); err != nil {
		s.log.Errorf("archive spin events failed, retry later: %v", err)
		return consumer.ConsumeRetryLater, nil
	}
	return consumer.ConsumeSuccess, nil
}

// decodeSpinEvents skips messages that are not spin events; redelivery would not fix them.
func decodeSpinEvents(logger *log.Helper, msgs []*primitive.MessageExt) []*biz.SpinEvent {
	events := make([]*biz.SpinEvent, 0, len(msgs))
	for _, msg := range msgs {
		var ev biz.SpinEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil || ev.RecordID == "" {
			logger.Errorf("drop unreadable spin event: msgId=%s err=%v body=%.128s", msg.MsgId, err, string(msg.Body))
			continue
		}
		events = append(events, &ev)
	}
	return events
}
