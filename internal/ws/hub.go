// Package ws - 실시간 구독자 fan-out 허브
//
// Hub는 현재 연결된 WebSocket 클라이언트 집합을 관리하고, Broadcast 호출 시
// 페이로드를 전원에게 push한다. best-effort 전달:
//   - 구독자가 0명이면 그냥 성공 (버퍼링/리플레이 없음)
//   - 느린 클라이언트(송신 버퍼 가득참)는 연결을 끊어서 나머지를 막지 않음
//
// 클라이언트에게 전송되는 envelope:
//
//	{ "topic": "incidents", "data": { ...IncidentResponse... } }
//	{ "topic": "incidents/deleted", "data": { "id": "..." } }
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout - 클라이언트 1명에 대한 단일 write 데드라인
	writeTimeout = 10 * time.Second

	// pongWait - pong 응답을 기다리는 최대 시간. 넘기면 죽은 연결로 간주
	pongWait = 60 * time.Second

	// pingPeriod - ping 프레임 전송 주기. pongWait보다 짧아야 함
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize - 클라이언트별 송신 버퍼 깊이
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin 검증은 CORS 미들웨어/리버스 프록시 레벨에서 수행
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message - 브로드캐스트 envelope
type Message struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client.send는 허브가 닫지 않는다. Broadcast와 제거가 동시에 일어나도
// 닫힌 채널에 send하는 일이 없도록, 제거 신호는 done 채널로만 전달한다
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// Run - ctx 취소까지 블록, 취소되면 모든 연결을 정리
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Broadcast - 현재 구독자 전원에게 페이로드 전송
// 각 클라이언트는 독립적으로 전달받으며, 한 명의 실패가 나머지를 막지 않는다
func (h *Hub) Broadcast(topic string, payload any) error {
	data, err := json.Marshal(Message{Topic: topic, Data: payload})
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			// 송신 버퍼가 가득찬 클라이언트는 끊는다
			log.Printf("[WebSocket] Dropping slow client (buffer full)")
			h.unregister(c)
		}
	}
	return nil
}

// ServeHTTP - HTTP 연결을 WebSocket으로 업그레이드하고 클라이언트를 등록
// 연결이 닫힐 때까지 블록
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader가 이미 에러 응답을 기록함
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

// Count - 현재 연결된 클라이언트 수
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// unregister - 멱등. 연결 정리는 done 신호를 받은 writePump가 수행
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.done)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.done)
		delete(h.clients, c)
	}
}

// writePump - 송신 채널을 비우며 WebSocket으로 전달. 클라이언트별 고루틴에서 실행
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// 허브 종료 또는 클라이언트 제거
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump - 제어 프레임(pong/close) 처리 및 연결 종료 감지. 연결이 닫힐 때까지 블록
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
