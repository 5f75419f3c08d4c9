package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zabbix-incident/backend/internal/model"
)

// Postgres - 인시던트 저장소. 내구성의 단일 기준점
type Postgres struct {
	Pool *pgxpool.Pool
}

// Postgres unique_violation 에러 코드
const uniqueViolationCode = "23505"

const incidentColumns = `
	id, zabbix_event_id, hostids, title, description, alert_message,
	event_name, event_opdata, host, host_ip, item, item_key,
	trigger_name, url_zabbix, valor, severity, status, source,
	created_at, updated_at`

// EnsureIncidentSchema - incidents 테이블 및 인덱스 생성
// zabbix_event_id의 유일성은 애플리케이션 체크가 아니라 UNIQUE 제약으로 보장한다
func (db *Postgres) EnsureIncidentSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			zabbix_event_id TEXT NOT NULL UNIQUE,
			hostids TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			alert_message TEXT NOT NULL DEFAULT '',
			event_name TEXT NOT NULL DEFAULT '',
			event_opdata TEXT NOT NULL DEFAULT '',
			host TEXT NOT NULL DEFAULT '',
			host_ip TEXT NOT NULL DEFAULT '',
			item TEXT NOT NULL DEFAULT '',
			item_key TEXT NOT NULL DEFAULT '',
			trigger_name TEXT NOT NULL DEFAULT '',
			url_zabbix TEXT NOT NULL DEFAULT '',
			valor TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'OPEN',
			source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS incidents_status_idx ON incidents(status)`,
		`CREATE INDEX IF NOT EXISTS incidents_host_idx ON incidents(host)`,
		`CREATE INDEX IF NOT EXISTS incidents_created_at_idx ON incidents(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// CreateIncident - 인시던트 최초 저장
// id는 여기서 채번하고, created_at == updated_at으로 스탬프
// 동시 생성 경쟁에서 진 쪽은 UNIQUE 제약 위반으로 ErrDuplicateEventID를 받는다
func (db *Postgres) CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	inc.ID = uuid.NewString()
	now := time.Now().UTC()
	inc.CreatedAt = now
	inc.UpdatedAt = now

	query := `
		INSERT INTO incidents (
			id, zabbix_event_id, hostids, title, description, alert_message,
			event_name, event_opdata, host, host_ip, item, item_key,
			trigger_name, url_zabbix, valor, severity, status, source,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := db.Pool.Exec(ctx, query,
		inc.ID,
		inc.ZabbixEventID,
		inc.Hostids,
		inc.Title,
		inc.Description,
		inc.AlertMessage,
		inc.EventName,
		inc.EventOpdata,
		inc.Host,
		inc.HostIP,
		inc.Item,
		inc.ItemKey,
		inc.Trigger,
		inc.URLZabbix,
		inc.Valor,
		string(inc.Severity),
		string(inc.Status),
		inc.Source,
		inc.CreatedAt,
		inc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return model.Incident{}, fmt.Errorf("zabbix event id %q: %w", inc.ZabbixEventID, model.ErrDuplicateEventID)
		}
		return model.Incident{}, err
	}

	return inc, nil
}

func (db *Postgres) GetIncident(ctx context.Context, id string) (model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	return db.queryOne(ctx, query, id)
}

func (db *Postgres) GetIncidentByZabbixEventID(ctx context.Context, zabbixEventID string) (model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE zabbix_event_id = $1`
	return db.queryOne(ctx, query, zabbixEventID)
}

// ListIncidents - 필터/정렬/페이징 목록 조회. 전체 건수를 함께 반환
func (db *Postgres) ListIncidents(ctx context.Context, q model.ListIncidentsQuery) ([]model.Incident, int64, error) {
	where, args := listFilterClause(q)

	var total int64
	countQuery := `SELECT COUNT(*) FROM incidents` + where
	if err := db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(q)
	pageQuery := fmt.Sprintf(
		`SELECT %s FROM incidents%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		incidentColumns, where, sortClause(q.SortBy, q.SortDir), len(args)+1, len(args)+2,
	)
	rows, err := db.Pool.Query(ctx, pageQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []model.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if list == nil {
		list = []model.Incident{}
	}
	return list, total, nil
}

// UpdateIncidentStatus - 상태 변경 및 updated_at 스탬프
func (db *Postgres) UpdateIncidentStatus(ctx context.Context, id string, status model.Status) (model.Incident, error) {
	query := `
		UPDATE incidents
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + incidentColumns

	return db.queryOne(ctx, query, id, string(status))
}

func (db *Postgres) DeleteIncident(ctx context.Context, id string) error {
	commandTag, err := db.Pool.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("id %q: %w", id, model.ErrNotFound)
	}
	return nil
}

func (db *Postgres) queryOne(ctx context.Context, query string, args ...any) (model.Incident, error) {
	inc, err := scanIncident(db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Incident{}, model.ErrNotFound
		}
		return model.Incident{}, err
	}
	return inc, nil
}

func scanIncident(row pgx.Row) (model.Incident, error) {
	var inc model.Incident
	err := row.Scan(
		&inc.ID,
		&inc.ZabbixEventID,
		&inc.Hostids,
		&inc.Title,
		&inc.Description,
		&inc.AlertMessage,
		&inc.EventName,
		&inc.EventOpdata,
		&inc.Host,
		&inc.HostIP,
		&inc.Item,
		&inc.ItemKey,
		&inc.Trigger,
		&inc.URLZabbix,
		&inc.Valor,
		&inc.Severity,
		&inc.Status,
		&inc.Source,
		&inc.CreatedAt,
		&inc.UpdatedAt,
	)
	return inc, err
}

// listFilterClause - host 부분일치(ILIKE), status 일치 필터로 WHERE절 조립
func listFilterClause(q model.ListIncidentsQuery) (string, []any) {
	var conditions []string
	var args []any

	if q.Host != "" {
		args = append(args, "%"+q.Host+"%")
		conditions = append(conditions, fmt.Sprintf("host ILIKE $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// 정렬 키 화이트리스트. 목록에 없는 키는 기본 정렬로 대체
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"severity":  "severity",
	"status":    "status",
	"title":     "title",
}

// sortClause - 결정적 페이징을 위해 항상 id를 보조 정렬 키로 붙인다
func sortClause(sortBy, sortDir string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(sortDir, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", column, dir, dir)
}

func pageBounds(q model.ListIncidentsQuery) (limit, offset int) {
	return q.Size, q.Page * q.Size
}
