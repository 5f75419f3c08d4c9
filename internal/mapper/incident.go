// 인시던트 변환 함수 모음
// 생성 요청 → 저장 레코드, 저장 레코드 → 응답 DTO를 명시적으로 변환한다
//
// 규칙:
//   - FromCreateRequest는 status를 항상 OPEN으로 강제 (페이로드에 상태 유사 필드가 있어도 무시)
//   - ID, CreatedAt, UpdatedAt은 비워둠 (db 레이어가 최초 저장 시점에 채움)
//   - ToResponse는 레코드에 없는 값을 만들어내지 않음

package mapper

import (
	"github.com/zabbix-incident/backend/internal/model"
)

// FromCreateRequest - 생성 요청을 저장 레코드로 변환
// severity 이름이 5개 enum 중 하나가 아니면 ErrInvalidSeverity
func FromCreateRequest(req model.CreateIncidentRequest) (model.Incident, error) {
	severity, err := model.ParseSeverity(req.Severity)
	if err != nil {
		return model.Incident{}, err
	}

	return model.Incident{
		ZabbixEventID: req.ZabbixEventID,
		Hostids:       req.Hostids,
		Title:         req.Title,
		Description:   req.Description,
		AlertMessage:  req.AlertMessage,
		EventName:     req.EventName,
		EventOpdata:   req.EventOpdata,
		Host:          req.Host,
		HostIP:        req.HostIP,
		Item:          req.Item,
		ItemKey:       req.ItemKey,
		Trigger:       req.Trigger,
		URLZabbix:     req.URLZabbix,
		Valor:         req.Valor,
		Severity:      severity,
		Status:        model.StatusOpen,
		Source:        req.Source,
	}, nil
}

// ToResponse - 저장 레코드를 외부 노출용 DTO로 변환
func ToResponse(inc model.Incident) model.IncidentResponse {
	return model.IncidentResponse{
		ID:            inc.ID,
		ZabbixEventID: inc.ZabbixEventID,
		Hostids:       inc.Hostids,
		Title:         inc.Title,
		Description:   inc.Description,
		AlertMessage:  inc.AlertMessage,
		EventName:     inc.EventName,
		EventOpdata:   inc.EventOpdata,
		Host:          inc.Host,
		HostIP:        inc.HostIP,
		Item:          inc.Item,
		ItemKey:       inc.ItemKey,
		Trigger:       inc.Trigger,
		URLZabbix:     inc.URLZabbix,
		Valor:         inc.Valor,
		Severity:      string(inc.Severity),
		Status:        string(inc.Status),
		Source:        inc.Source,
		CreatedAt:     inc.CreatedAt,
		UpdatedAt:     inc.UpdatedAt,
	}
}
