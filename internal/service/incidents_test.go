package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zabbix-incident/backend/internal/model"
)

// memStore - UNIQUE 제약을 흉내내는 인메모리 저장소
type memStore struct {
	mu      sync.Mutex
	byID    map[string]model.Incident
	byEvent map[string]string
	seq     int
}

func newMemStore() *memStore {
	return &memStore{
		byID:    make(map[string]model.Incident),
		byEvent: make(map[string]string),
	}
}

func (s *memStore) CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEvent[inc.ZabbixEventID]; exists {
		return model.Incident{}, fmt.Errorf("zabbix event id %q: %w", inc.ZabbixEventID, model.ErrDuplicateEventID)
	}
	s.seq++
	inc.ID = fmt.Sprintf("inc-%d", s.seq)
	now := time.Now().UTC()
	inc.CreatedAt = now
	inc.UpdatedAt = now
	s.byID[inc.ID] = inc
	s.byEvent[inc.ZabbixEventID] = inc.ID
	return inc, nil
}

func (s *memStore) GetIncident(ctx context.Context, id string) (model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.byID[id]
	if !ok {
		return model.Incident{}, model.ErrNotFound
	}
	return inc, nil
}

func (s *memStore) GetIncidentByZabbixEventID(ctx context.Context, eventID string) (model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEvent[eventID]
	if !ok {
		return model.Incident{}, model.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *memStore) ListIncidents(ctx context.Context, q model.ListIncidentsQuery) ([]model.Incident, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.Incident
	for _, inc := range s.byID {
		if q.Status != "" && string(inc.Status) != q.Status {
			continue
		}
		list = append(list, inc)
	}
	return list, int64(len(list)), nil
}

func (s *memStore) UpdateIncidentStatus(ctx context.Context, id string, status model.Status) (model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.byID[id]
	if !ok {
		return model.Incident{}, model.ErrNotFound
	}
	inc.Status = status
	inc.UpdatedAt = inc.UpdatedAt.Add(time.Millisecond) // NOW() 대용
	s.byID[id] = inc
	return inc, nil
}

func (s *memStore) DeleteIncident(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byEvent, inc.ZabbixEventID)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type memPublisher struct {
	mu        sync.Mutex
	published []model.Incident
	kinds     []string
	err       error
}

func (p *memPublisher) PublishCreated(ctx context.Context, inc model.Incident) error {
	return p.record("created", inc)
}

func (p *memPublisher) PublishUpdated(ctx context.Context, inc model.Incident) error {
	return p.record("updated", inc)
}

func (p *memPublisher) record(kind string, inc model.Incident) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, inc)
	p.kinds = append(p.kinds, kind)
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type memDeleteNotifier struct {
	deleted []string
}

func (n *memDeleteNotifier) NotifyIncidentDeleted(id string) error {
	n.deleted = append(n.deleted, id)
	return nil
}

func newTestService() (*IncidentService, *memStore, *memPublisher, *memDeleteNotifier) {
	store := newMemStore()
	pub := &memPublisher{}
	notifier := &memDeleteNotifier{}
	return NewIncidentService(store, pub, notifier), store, pub, notifier
}

func createRequest(eventID string) model.CreateIncidentRequest {
	return model.CreateIncidentRequest{
		ZabbixEventID: eventID,
		Title:         "Ping Down",
		Severity:      "HIGH",
		Source:        "zabbix",
		Host:          "web-01",
	}
}

func TestCreateIncidentAssignsIDAndOpenStatus(t *testing.T) {
	svc, _, pub, _ := newTestService()

	res, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if err != nil {
		t.Fatalf("CreateIncident: %v", err)
	}
	if res.ID == "" {
		t.Error("id not assigned")
	}
	if res.Status != "OPEN" {
		t.Errorf("status = %q, want OPEN", res.Status)
	}
	if !res.CreatedAt.Equal(res.UpdatedAt) {
		t.Errorf("createdAt (%v) != updatedAt (%v) at creation", res.CreatedAt, res.UpdatedAt)
	}
	if pub.count() != 1 {
		t.Errorf("published %d messages, want 1", pub.count())
	}
}

func TestCreateIncidentDuplicateConflict(t *testing.T) {
	svc, store, pub, _ := newTestService()

	if _, err := svc.CreateIncident(context.Background(), createRequest("E1")); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if !errors.Is(err, model.ErrDuplicateEventID) {
		t.Fatalf("error = %v, want ErrDuplicateEventID", err)
	}
	if store.count() != 1 {
		t.Errorf("store holds %d records, want 1", store.count())
	}
	if pub.count() != 1 {
		t.Errorf("published %d messages, want 1 (duplicate must not publish)", pub.count())
	}
}

// 동시 생성 경쟁: 정확히 한쪽만 성공하고 다른 쪽은 중복 에러를 받아야 함
func TestCreateIncidentConcurrentSameEventID(t *testing.T) {
	svc, store, _, _ := newTestService()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateIncident(context.Background(), createRequest("E1"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, model.ErrDuplicateEventID):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if conflicts != attempts-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, attempts-1)
	}
	if store.count() != 1 {
		t.Errorf("store holds %d records, want 1", store.count())
	}
}

func TestCreateIncidentInvalidSeverity(t *testing.T) {
	svc, store, _, _ := newTestService()

	req := createRequest("E1")
	req.Severity = "DISASTER"
	_, err := svc.CreateIncident(context.Background(), req)
	if !errors.Is(err, model.ErrInvalidSeverity) {
		t.Fatalf("error = %v, want ErrInvalidSeverity", err)
	}
	if store.count() != 0 {
		t.Errorf("store holds %d records, want 0", store.count())
	}
}

// 발행 실패는 에러로 보고하되 저장된 레코드는 유지되어야 함
func TestCreateIncidentPublishFailureKeepsRecord(t *testing.T) {
	svc, store, pub, _ := newTestService()
	pub.err = fmt.Errorf("%w: broker unreachable", model.ErrPublishFailure)

	res, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if !errors.Is(err, model.ErrPublishFailure) {
		t.Fatalf("error = %v, want ErrPublishFailure", err)
	}
	if res.ID == "" {
		t.Error("stored record not returned alongside publish failure")
	}
	if store.count() != 1 {
		t.Errorf("store holds %d records, want 1 (no rollback)", store.count())
	}
}

func TestUpdateIncidentStatus(t *testing.T) {
	svc, _, pub, _ := newTestService()

	created, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.UpdateIncidentStatus(context.Background(), created.ID, "RESOLVED")
	if err != nil {
		t.Fatalf("UpdateIncidentStatus: %v", err)
	}
	if res.Status != "RESOLVED" {
		t.Errorf("status = %q, want RESOLVED", res.Status)
	}
	if !res.UpdatedAt.After(res.CreatedAt) {
		t.Errorf("updatedAt (%v) not after createdAt (%v)", res.UpdatedAt, res.CreatedAt)
	}
	if pub.count() != 2 {
		t.Errorf("published %d messages, want 2 (create + update)", pub.count())
	}
	if len(pub.kinds) == 2 && (pub.kinds[0] != "created" || pub.kinds[1] != "updated") {
		t.Errorf("publish kinds = %v, want [created updated]", pub.kinds)
	}
}

// 같은 상태로 두 번 갱신해도 상태는 유지되고 updatedAt만 전진
func TestUpdateIncidentStatusIdempotentReplay(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.UpdateIncidentStatus(context.Background(), created.ID, "RESOLVED")
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := svc.UpdateIncidentStatus(context.Background(), created.ID, "RESOLVED")
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.Status != "RESOLVED" {
		t.Errorf("status = %q, want RESOLVED", second.Status)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updatedAt did not advance on replay")
	}
}

func TestUpdateIncidentStatusBogusNameLeavesRecordUnchanged(t *testing.T) {
	svc, store, _, _ := newTestService()

	created, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.UpdateIncidentStatus(context.Background(), created.ID, "BOGUS")
	if !errors.Is(err, model.ErrInvalidStatus) {
		t.Fatalf("error = %v, want ErrInvalidStatus", err)
	}

	inc, err := store.GetIncident(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if inc.Status != model.StatusOpen {
		t.Errorf("status = %q, want OPEN (unchanged)", inc.Status)
	}
}

func TestUpdateIncidentStatusPublishFailureIsNotFatal(t *testing.T) {
	svc, _, pub, _ := newTestService()

	created, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pub.err = fmt.Errorf("%w: broker unreachable", model.ErrPublishFailure)
	res, err := svc.UpdateIncidentStatus(context.Background(), created.ID, "CLOSED")
	if err != nil {
		t.Fatalf("status update must succeed despite publish failure, got: %v", err)
	}
	if res.Status != "CLOSED" {
		t.Errorf("status = %q, want CLOSED", res.Status)
	}
}

func TestUpdateAndDeleteUnknownIDNotFound(t *testing.T) {
	svc, store, _, _ := newTestService()

	if _, err := svc.UpdateIncidentStatus(context.Background(), "missing", "RESOLVED"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("update error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteIncident(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("delete error = %v, want ErrNotFound", err)
	}
	if store.count() != 0 {
		t.Errorf("store holds %d records, want 0 (no side effects)", store.count())
	}
}

func TestDeleteIncidentBroadcastsID(t *testing.T) {
	svc, store, _, notifier := newTestService()

	created, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteIncident(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteIncident: %v", err)
	}
	if store.count() != 0 {
		t.Errorf("store holds %d records after delete, want 0", store.count())
	}
	if len(notifier.deleted) != 1 || notifier.deleted[0] != created.ID {
		t.Errorf("deleted notifications = %v, want [%s]", notifier.deleted, created.ID)
	}
}

func TestGetIncidentByZabbixEventID(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.CreateIncident(context.Background(), createRequest("E1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.GetIncidentByZabbixEventID(context.Background(), "E1")
	if err != nil {
		t.Fatalf("GetIncidentByZabbixEventID: %v", err)
	}
	if res.ID != created.ID {
		t.Errorf("id = %q, want %q", res.ID, created.ID)
	}

	if _, err := svc.GetIncidentByZabbixEventID(context.Background(), "E404"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListIncidentsPaging(t *testing.T) {
	svc, _, _, _ := newTestService()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateIncident(context.Background(), createRequest(fmt.Sprintf("E%d", i))); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := svc.ListIncidents(context.Background(), model.ListIncidentsQuery{Page: 0, Size: 2})
	if err != nil {
		t.Fatalf("ListIncidents: %v", err)
	}
	if page.TotalElements != 3 {
		t.Errorf("totalElements = %d, want 3", page.TotalElements)
	}
	if page.TotalPages != 2 {
		t.Errorf("totalPages = %d, want 2", page.TotalPages)
	}
	if page.Size != 2 {
		t.Errorf("size = %d, want 2", page.Size)
	}
}
