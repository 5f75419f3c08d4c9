// Incident 도메인 모델 및 API 요청/응답 구조체 정의
// db, service, broker, handler 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import (
	"fmt"
	"time"
)

// Severity - 알람 심각도 (Zabbix 기준 5단계)
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Status - 인시던트 처리 상태
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// ParseSeverity - 문자열을 Severity로 변환. 5개 이름 외에는 ErrInvalidSeverity
func ParseSeverity(name string) (Severity, error) {
	switch Severity(name) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return Severity(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, name)
}

// ParseStatus - 문자열을 Status로 변환. 4개 이름 외에는 ErrInvalidStatus
func ParseStatus(name string) (Status, error) {
	switch Status(name) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return Status(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, name)
}

// Incident - 저장소가 소유하는 인시던트 레코드
// ID, CreatedAt, UpdatedAt은 최초 저장 시점에 db 레이어가 채움
type Incident struct {
	ID            string    `json:"id"`
	ZabbixEventID string    `json:"zabbixEventId"`
	Hostids       string    `json:"hostids"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	AlertMessage  string    `json:"alertMessage"`
	EventName     string    `json:"eventName"`
	EventOpdata   string    `json:"eventOpdata"`
	Host          string    `json:"host"`
	HostIP        string    `json:"hostIp"`
	Item          string    `json:"item"`
	ItemKey       string    `json:"itemKey"`
	Trigger       string    `json:"trigger"`
	URLZabbix     string    `json:"urlZabbix"`
	Valor         string    `json:"valor"`
	Severity      Severity  `json:"severity"`
	Status        Status    `json:"status"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateIncidentRequest - Zabbix가 보내는 인시던트 생성 페이로드
// status 필드는 받지 않음. 신규 인시던트는 무조건 OPEN으로 시작
type CreateIncidentRequest struct {
	ZabbixEventID string `json:"zabbixEventId" binding:"required"`
	Hostids       string `json:"hostids"`
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	AlertMessage  string `json:"alertMessage"`
	EventName     string `json:"eventName"`
	EventOpdata   string `json:"eventOpdata"`
	Host          string `json:"host"`
	HostIP        string `json:"hostIp"`
	Item          string `json:"item"`
	ItemKey       string `json:"itemKey"`
	Trigger       string `json:"trigger"`
	URLZabbix     string `json:"urlZabbix"`
	Valor         string `json:"valor"`
	Severity      string `json:"severity" binding:"required"`
	Source        string `json:"source" binding:"required"`
}

// UpdateIncidentStatusRequest - 상태 변경 요청
type UpdateIncidentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// IncidentResponse - 외부 노출용 인시던트 구조체. enum은 문자열 이름으로 렌더링
type IncidentResponse struct {
	ID            string    `json:"id"`
	ZabbixEventID string    `json:"zabbixEventId"`
	Hostids       string    `json:"hostids,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	AlertMessage  string    `json:"alertMessage,omitempty"`
	EventName     string    `json:"eventName,omitempty"`
	EventOpdata   string    `json:"eventOpdata,omitempty"`
	Host          string    `json:"host,omitempty"`
	HostIP        string    `json:"hostIp,omitempty"`
	Item          string    `json:"item,omitempty"`
	ItemKey       string    `json:"itemKey,omitempty"`
	Trigger       string    `json:"trigger,omitempty"`
	URLZabbix     string    `json:"urlZabbix,omitempty"`
	Valor         string    `json:"valor,omitempty"`
	Severity      string    `json:"severity"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IncidentDeletedNotice - 삭제 브로드캐스트 페이로드 (id만 전달)
type IncidentDeletedNotice struct {
	ID string `json:"id"`
}

// ListIncidentsQuery - 페이징 목록 조회 파라미터
type ListIncidentsQuery struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
	Host    string
	Status  string
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage - page*size 오버플로로 OFFSET이 음수가 되는 것을 막는 상한
	MaxPage = 1 << 20
)

// Normalize - 페이지/사이즈 기본값과 상한 적용
func (q ListIncidentsQuery) Normalize() ListIncidentsQuery {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	return q
}

// IncidentPage - 페이징 목록 응답 구조체
type IncidentPage struct {
	Content       []IncidentResponse `json:"content"`
	Page          int                `json:"page"`
	Size          int                `json:"size"`
	TotalElements int64              `json:"totalElements"`
	TotalPages    int                `json:"totalPages"`
}
