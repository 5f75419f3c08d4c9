package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/zabbix-incident/backend/internal/ws"
)

// IncidentStream - 웹소켓 업그레이드 엔드포인트. 연결 수명은 허브가 관리
func IncidentStream(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeHTTP(c.Writer, c.Request)
	}
}
