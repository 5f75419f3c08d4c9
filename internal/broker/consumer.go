// 인시던트 큐 소비 루프
//
// 처리 흐름:
//  1. 큐에서 메시지 수신 (prefetch 1, 수동 ack)
//  2. JSON → Incident 역직렬화
//     - 실패하면 로그 후 ack (재큐잉하지 않음, poison message 루프 방지)
//  3. 라우팅 키로 생성/갱신 이벤트를 구분해 notifier로 브로드캐스트
//     - 실패/패닉은 여기서 격리. 레코드는 이미 DB에 저장되어 있으므로
//       알림 실패가 브로커 재전달을 유발하면 안 됨
//  4. ack

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/zabbix-incident/backend/internal/config"
	"github.com/zabbix-incident/backend/internal/model"
)

// IncidentNotifier - 소비한 레코드를 전달받는 쪽 (fan-out broadcaster)
type IncidentNotifier interface {
	NotifyIncidentCreated(inc model.Incident) error
	NotifyIncidentUpdated(inc model.Incident) error
}

type Consumer struct {
	ch         *amqp.Channel
	queue      string
	updatedKey string
	notifier   IncidentNotifier
}

func NewConsumer(ch *amqp.Channel, cfg config.RabbitMQConfig, notifier IncidentNotifier) *Consumer {
	return &Consumer{
		ch:         ch,
		queue:      cfg.Queue,
		updatedKey: cfg.UpdatedRoutingKey,
		notifier:   notifier,
	}
}

// Run - 소비 루프 시작. ctx 취소 또는 채널 종료까지 블록
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag 자동 생성
		false, // autoAck 비활성 - 처리 후 수동 ack
		false, // exclusive false - 수평 확장 시 다중 consumer 허용
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", c.queue, err)
	}

	log.Printf("[Consumer] Listening on queue %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Consumer] Stopping: %v", ctx.Err())
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %q", c.queue)
			}
			c.handleDelivery(d)
		}
	}
}

// handleDelivery - 메시지 1건 처리. 어떤 실패도 루프를 중단시키지 않는다
func (c *Consumer) handleDelivery(d amqp.Delivery) {
	defer c.ack(d)

	var inc model.Incident
	if err := json.Unmarshal(d.Body, &inc); err != nil {
		log.Printf("[Consumer] Discarding malformed message (%d bytes): %v", len(d.Body), err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Consumer] Recovered from notifier panic (incident_id=%s): %v", inc.ID, r)
		}
	}()

	var err error
	if d.RoutingKey == c.updatedKey {
		err = c.notifier.NotifyIncidentUpdated(inc)
	} else {
		err = c.notifier.NotifyIncidentCreated(inc)
	}
	if err != nil {
		// 브로드캐스트 실패는 여기서 종결. 저장은 이미 끝났으므로 재전달 금지
		log.Printf("[Consumer] Broadcast failed (incident_id=%s, key=%s): %v", inc.ID, d.RoutingKey, err)
	}
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		log.Printf("[Consumer] Failed to ack delivery (tag=%d): %v", d.DeliveryTag, err)
	}
}
