// 인시던트 파이프라인 오케스트레이션
//
// 처리 흐름 (생성):
//  1. zabbixEventId로 기존 레코드 조회 - 있으면 중복 에러 (쓰기/발행 없음)
//  2. mapper로 레코드 변환 (status는 무조건 OPEN)
//  3. 저장 - 동시 생성 경쟁은 저장소의 UNIQUE 제약이 최종적으로 막음
//  4. 브로커 발행 - 실패해도 저장된 레코드는 롤백하지 않음 (내구성 기준은 DB)
//
// 상태 변경/삭제 이후의 발행·알림은 best-effort. 실패는 로그만 남김

package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zabbix-incident/backend/internal/mapper"
	"github.com/zabbix-incident/backend/internal/model"
)

// IncidentStore - 저장소 인터페이스 (db.Postgres가 구현)
type IncidentStore interface {
	CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error)
	GetIncident(ctx context.Context, id string) (model.Incident, error)
	GetIncidentByZabbixEventID(ctx context.Context, zabbixEventID string) (model.Incident, error)
	ListIncidents(ctx context.Context, q model.ListIncidentsQuery) ([]model.Incident, int64, error)
	UpdateIncidentStatus(ctx context.Context, id string, status model.Status) (model.Incident, error)
	DeleteIncident(ctx context.Context, id string) error
}

// IncidentPublisher - 브로커 발행 인터페이스 (broker.Publisher가 구현)
// 생성과 상태 갱신은 라우팅 키가 다른 별개 이벤트로 발행된다
type IncidentPublisher interface {
	PublishCreated(ctx context.Context, inc model.Incident) error
	PublishUpdated(ctx context.Context, inc model.Incident) error
}

// DeleteNotifier - 삭제 브로드캐스트. 삭제는 브로커를 거치지 않고 직접 알림
type DeleteNotifier interface {
	NotifyIncidentDeleted(id string) error
}

type IncidentService struct {
	store     IncidentStore
	publisher IncidentPublisher
	notifier  DeleteNotifier
}

func NewIncidentService(store IncidentStore, publisher IncidentPublisher, notifier DeleteNotifier) *IncidentService {
	return &IncidentService{
		store:     store,
		publisher: publisher,
		notifier:  notifier,
	}
}

// CreateIncident - 생성 + 발행
// 발행 실패 시에도 저장된 레코드를 응답과 함께 반환한다. 에러는 ErrPublishFailure
func (s *IncidentService) CreateIncident(ctx context.Context, req model.CreateIncidentRequest) (model.IncidentResponse, error) {
	_, err := s.store.GetIncidentByZabbixEventID(ctx, req.ZabbixEventID)
	if err == nil {
		return model.IncidentResponse{}, fmt.Errorf("zabbix event id %q: %w", req.ZabbixEventID, model.ErrDuplicateEventID)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.IncidentResponse{}, err
	}

	inc, err := mapper.FromCreateRequest(req)
	if err != nil {
		return model.IncidentResponse{}, err
	}

	stored, err := s.store.CreateIncident(ctx, inc)
	if err != nil {
		return model.IncidentResponse{}, err
	}

	if err := s.publisher.PublishCreated(ctx, stored); err != nil {
		log.Printf("[IncidentService] Publish failed after create (id=%s): %v", stored.ID, err)
		return mapper.ToResponse(stored), err
	}

	return mapper.ToResponse(stored), nil
}

func (s *IncidentService) GetIncident(ctx context.Context, id string) (model.IncidentResponse, error) {
	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return model.IncidentResponse{}, err
	}
	return mapper.ToResponse(inc), nil
}

func (s *IncidentService) GetIncidentByZabbixEventID(ctx context.Context, zabbixEventID string) (model.IncidentResponse, error) {
	inc, err := s.store.GetIncidentByZabbixEventID(ctx, zabbixEventID)
	if err != nil {
		return model.IncidentResponse{}, err
	}
	return mapper.ToResponse(inc), nil
}

func (s *IncidentService) ListIncidents(ctx context.Context, q model.ListIncidentsQuery) (model.IncidentPage, error) {
	q = q.Normalize()

	items, total, err := s.store.ListIncidents(ctx, q)
	if err != nil {
		return model.IncidentPage{}, err
	}

	content := make([]model.IncidentResponse, 0, len(items))
	for _, inc := range items {
		content = append(content, mapper.ToResponse(inc))
	}

	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	return model.IncidentPage{
		Content:       content,
		Page:          q.Page,
		Size:          q.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

// UpdateIncidentStatus - 상태 이름 검증 후 저장소 갱신, 발행은 best-effort
// 상태 변경은 이미 내구적이므로 발행 실패가 호출자에게 에러로 돌아가지 않는다
func (s *IncidentService) UpdateIncidentStatus(ctx context.Context, id string, statusName string) (model.IncidentResponse, error) {
	status, err := model.ParseStatus(statusName)
	if err != nil {
		return model.IncidentResponse{}, err
	}

	updated, err := s.store.UpdateIncidentStatus(ctx, id, status)
	if err != nil {
		return model.IncidentResponse{}, err
	}

	if err := s.publisher.PublishUpdated(ctx, updated); err != nil {
		log.Printf("[IncidentService] Publish failed after status update (id=%s): %v", id, err)
	}

	return mapper.ToResponse(updated), nil
}

// DeleteIncident - 삭제 후 구독자에게 id만 브로드캐스트 (best-effort)
func (s *IncidentService) DeleteIncident(ctx context.Context, id string) error {
	if err := s.store.DeleteIncident(ctx, id); err != nil {
		return err
	}

	if err := s.notifier.NotifyIncidentDeleted(id); err != nil {
		log.Printf("[IncidentService] Delete broadcast failed (id=%s): %v", id, err)
	}

	return nil
}
