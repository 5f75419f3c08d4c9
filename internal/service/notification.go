// 실시간 알림 전송 서비스
// consumer가 넘겨준 레코드를 외부 노출용 DTO로 변환해서 허브의 모든 구독자에게 push

package service

import (
	"fmt"
	"log"

	"github.com/zabbix-incident/backend/internal/mapper"
	"github.com/zabbix-incident/backend/internal/model"
)

const (
	// 생성/상태변경은 같은 토픽, 삭제는 id만 싣는 별도 서브 토픽
	incidentTopic        = "incidents"
	incidentDeletedTopic = "incidents/deleted"
)

// Broadcaster - 구독자 레지스트리 (ws.Hub가 구현)
type Broadcaster interface {
	Broadcast(topic string, payload any) error
	Count() int
}

type NotificationService struct {
	hub Broadcaster
}

func NewNotificationService(hub Broadcaster) *NotificationService {
	return &NotificationService{hub: hub}
}

func (s *NotificationService) NotifyIncidentCreated(inc model.Incident) error {
	return s.notify(inc, "created")
}

func (s *NotificationService) NotifyIncidentUpdated(inc model.Incident) error {
	return s.notify(inc, "updated")
}

func (s *NotificationService) NotifyIncidentDeleted(id string) error {
	log.Printf("[WebSocket] Notifying incident deleted (id=%s, clients=%d)", id, s.hub.Count())
	if err := s.hub.Broadcast(incidentDeletedTopic, model.IncidentDeletedNotice{ID: id}); err != nil {
		return fmt.Errorf("broadcast incident deleted: %w", err)
	}
	return nil
}

func (s *NotificationService) notify(inc model.Incident, kind string) error {
	log.Printf("[WebSocket] Notifying incident %s (id=%s, status=%s, clients=%d)",
		kind, inc.ID, inc.Status, s.hub.Count())

	if err := s.hub.Broadcast(incidentTopic, mapper.ToResponse(inc)); err != nil {
		return fmt.Errorf("broadcast incident %s: %w", kind, err)
	}
	return nil
}
