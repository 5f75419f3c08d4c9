package model

import "errors"

// 파이프라인 전체에서 공유하는 에러 분류
// handler 레이어는 errors.Is로 HTTP 상태 코드를 결정한다
var (
	ErrNotFound         = errors.New("incident not found")
	ErrDuplicateEventID = errors.New("incident already exists for zabbix event id")
	ErrInvalidSeverity  = errors.New("invalid severity level")
	ErrInvalidStatus    = errors.New("invalid incident status")
	ErrPublishFailure   = errors.New("failed to publish incident to broker")
)
