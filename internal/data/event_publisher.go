package data

import (
	"context"
	"encoding/json"
	"fmt"

	"lottery-service/internal/biz"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

type eventPublisher struct {
	data    *Data
	archive biz.ArchiveRepo
	log     *log.Helper
}

// NewEventPublisher 创建抽奖事件发布者
// Without a producer, or when a send fails, the event is archived directly.
func NewEventPublisher(data *Data, archive biz.ArchiveRepo, logger log.Logger) biz.EventPublisher {
	return &eventPublisher{
		data:    data,
		archive: archive,
		log:     log.NewHelper(logger),
	}
}

func (p *eventPublisher) PublishSpinEvent(ctx context.Context, ev *biz.SpinEvent) error {
	if p.data.mq == nil {
		return p.archiveDirect(ctx, ev)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode spin event: %w", err)
	}
	msg := primitive.NewMessage(p.data.mqTopic, body)
	msg.WithKeys([]string{ev.RecordID})
	msg.WithTag(ev.Status)

	res, err := p.data.mq.SendSync(ctx, msg)
	if err != nil || res.Status != primitive.SendOK {
		p.log.Warnf("send spin event to mq failed, archiving directly: record=%s err=%v", ev.RecordID, err)
		return p.archiveDirect(ctx, ev)
	}
	p.log.Debugf("spin event sent: record=%s msgId=%s", ev.RecordID, res.MsgID)
	return nil
}

func (p *eventPublisher) archiveDirect(ctx context.Context, ev *biz.SpinEvent) error {
	if _, err := p.archive.SaveBatch(ctx, []*biz.SpinEvent{ev}); err != nil {
		return fmt.Errorf("archive spin event: %w", err)
	}
	return nil
}
