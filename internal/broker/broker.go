// RabbitMQ 연결 및 토폴로지 선언
//
// exchange/queue/binding은 consumer가 시작되기 전에 명시적으로 선언한다
//   - topic exchange: incident.* 패턴 바인딩으로 생성/갱신 키를 한 큐로 수신
//   - durable queue: 브로커 재시작에도 메시지 유지

package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/zabbix-incident/backend/internal/config"
)

func Connect(cfg config.RabbitMQConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, ch, nil
}

func DeclareTopology(ch *amqp.Channel, cfg config.RabbitMQConfig) error {
	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", cfg.Exchange, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", cfg.Queue, err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.BindingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q to %q: %w", cfg.Queue, cfg.Exchange, err)
	}

	return nil
}
