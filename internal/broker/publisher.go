package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/zabbix-incident/backend/internal/config"
	"github.com/zabbix-incident/backend/internal/model"
)

// amqpPublishChannel - 발행에 필요한 채널 기능 (테스트용 인터페이스)
type amqpPublishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher - 저장 성공 후 인시던트 레코드를 발행
// 이벤트 종류는 본문이 아니라 라우팅 키로 구분한다 (생성/갱신 키가 다름)
// 재시도는 하지 않음. 실패는 ErrPublishFailure로 감싸서 호출자에게 그대로 전달
type Publisher struct {
	ch         amqpPublishChannel
	exchange   string
	createdKey string
	updatedKey string
}

func NewPublisher(ch *amqp.Channel, cfg config.RabbitMQConfig) *Publisher {
	return &Publisher{
		ch:         ch,
		exchange:   cfg.Exchange,
		createdKey: cfg.CreatedRoutingKey,
		updatedKey: cfg.UpdatedRoutingKey,
	}
}

func (p *Publisher) PublishCreated(ctx context.Context, inc model.Incident) error {
	return p.publish(ctx, p.createdKey, inc)
}

func (p *Publisher) PublishUpdated(ctx context.Context, inc model.Incident) error {
	return p.publish(ctx, p.updatedKey, inc)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, inc model.Incident) error {
	body, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("%w: serialize incident %s: %v", model.ErrPublishFailure, inc.ID, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: exchange=%s routing_key=%s: %v", model.ErrPublishFailure, p.exchange, routingKey, err)
	}

	return nil
}
