package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"qa_forum_backend/pkg/logger"
	"qa_forum_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute // 在线状态过期时间

	notifyChannel = "notify_channel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// subscribeRequest 客户端订阅帧，userId 只能是自己的 id，不一致时忽略
type subscribeRequest struct {
	UserID uint `json:"userId"`
}

type Client struct {
	Hub     *NotificationHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter // 限流器

	closeOnce sync.Once
}

// closeSend 幂等关闭，Stop 与断开路径可能先后到达
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unsubscribe <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}

		monitoring.WSEventCounter.WithLabelValues(wsMsg.Type, "in").Inc()

		if wsMsg.Type == "subscribe" {
			// 订阅目标始终是连接本人的房间，携带他人 id 的帧直接丢弃
			if raw, err := json.Marshal(wsMsg.Data); err == nil {
				var req subscribeRequest
				if json.Unmarshal(raw, &req) == nil && req.UserID != 0 && req.UserID != c.UserID {
					logger.Log.Warn("subscribe for foreign room rejected",
						zap.Uint("userId", c.UserID), zap.Uint("requested", req.UserID))
					continue
				}
			}
			c.Hub.subscribe <- c
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// shard 按 userID 分片的房间表，room = 同一用户的全部在线会话
type shard struct {
	rooms map[uint]map[*Client]struct{}
	mu    sync.RWMutex
}

// NotificationHub 按用户房间推送实时通知。
// 房间成员只随本人会话的订阅/断开变化，跨用户互不干扰。
// Redis 可选：配置后经 pub/sub 跨实例分发，否则单实例本地直发。
type NotificationHub struct {
	shards      [shardCount]*shard
	subscribe   chan *Client
	unsubscribe chan *Client
	Redis       *redis.Client
	ctx         context.Context
}

func NewNotificationHub(rdb *redis.Client) *NotificationHub {
	h := &NotificationHub{
		subscribe:   make(chan *Client),
		unsubscribe: make(chan *Client),
		Redis:       rdb,
		ctx:         context.Background(),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			rooms: make(map[uint]map[*Client]struct{}),
		}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type pubSubMessage struct {
	TargetUser uint            `json:"targetUser"`
	Payload    json.RawMessage `json:"payload"`
}

func (h *NotificationHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, notifyChannel)
		go func() {
			ch := pubsub.Channel()
			for msg := range ch {
				var psMsg pubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.pushToLocalRoom(psMsg.TargetUser, psMsg.Payload)
			}
		}()
	}

	// 状态续期定时器 (Heartbeat)
	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer heartbeatTicker.Stop()

	for {
		select {
		case client := <-h.subscribe:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			room, ok := s.rooms[client.UserID]
			if !ok {
				room = make(map[*Client]struct{})
				s.rooms[client.UserID] = room
			}
			if _, joined := room[client]; !joined {
				room[client] = struct{}{}
				monitoring.WSLiveSessions.Inc()
			}
			first := len(room) == 1
			s.mu.Unlock()
			if first {
				h.setOnline(client.UserID, true)
			}

		case client := <-h.unsubscribe:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			last := false
			if room, ok := s.rooms[client.UserID]; ok {
				if _, joined := room[client]; joined {
					delete(room, client)
					monitoring.WSLiveSessions.Dec()
				}
				if len(room) == 0 {
					delete(s.rooms, client.UserID)
					last = true
				}
			}
			s.mu.Unlock()
			client.closeSend()
			if last {
				h.setOnline(client.UserID, false)
			}

		case <-heartbeatTicker.C:
			// 为本地在线用户批量续期
			h.refreshOnlineStatus()
		}
	}
}

func (h *NotificationHub) setOnline(userID uint, online bool) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf("user:online:%d", userID)
	var err error
	if online {
		err = h.Redis.Set(h.ctx, key, "true", onlineTTL).Err()
	} else {
		err = h.Redis.Del(h.ctx, key).Err()
	}
	if err != nil {
		logger.Log.Error("Redis presence update error", zap.Error(err), zap.Uint("userId", userID))
	}
}

// refreshOnlineStatus 刷新当前实例所有在线用户的过期时间
func (h *NotificationHub) refreshOnlineStatus() {
	if h.Redis == nil {
		return
	}
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for userID := range s.rooms {
			pipe.Expire(h.ctx, fmt.Sprintf("user:online:%d", userID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed online status", zap.Int("count", count))
	}
}

// PublishToUser 向指定用户的房间推送事件，房间内全部会话都会收到。
// 无送达保证：离线用户收不到任何补发，慢消费者的积压消息被丢弃。
func (h *NotificationHub) PublishToUser(userID uint, msg WSMessage) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	monitoring.WSEventCounter.WithLabelValues(msg.Type, "out").Inc()

	if h.Redis != nil {
		psMsg := pubSubMessage{
			TargetUser: userID,
			Payload:    msgBytes,
		}
		payload, err := json.Marshal(psMsg)
		if err != nil {
			return err
		}
		return h.Redis.Publish(h.ctx, notifyChannel, payload).Err()
	}

	h.pushToLocalRoom(userID, msgBytes)
	return nil
}

func (h *NotificationHub) pushToLocalRoom(userID uint, payload []byte) {
	s := h.getShard(userID)
	s.mu.RLock()
	for client := range s.rooms[userID] {
		select {
		case client.Send <- payload:
		default:
			// 发送缓冲已满，丢弃而不阻塞其他会话
		}
	}
	s.mu.RUnlock()
}

func (h *NotificationHub) IsUserOnline(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	_, ok := s.rooms[userID]
	s.mu.RUnlock()
	if ok {
		return true
	}

	// 查 Redis (多实例部署)
	if h.Redis == nil {
		return false
	}
	val, err := h.Redis.Get(h.ctx, fmt.Sprintf("user:online:%d", userID)).Result()
	return err == nil && val == "true"
}

// Stop 关闭所有连接并清理在线状态
func (h *NotificationHub) Stop() {
	logger.Log.Info("NotificationHub stopping: clearing online status and closing connections...")

	var allUserIDs []uint
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, room := range s.rooms {
			allUserIDs = append(allUserIDs, userID)
			for client := range room {
				client.closeSend()
				closed++
			}
			delete(s.rooms, userID)
		}
		s.mu.Unlock()
	}

	if h.Redis != nil && len(allUserIDs) > 0 {
		pipe := h.Redis.Pipeline()
		for _, userID := range allUserIDs {
			pipe.Del(h.ctx, fmt.Sprintf("user:online:%d", userID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.WSLiveSessions.Set(0)
	logger.Log.Info("NotificationHub stopped", zap.Int("closedConnections", closed))
}

func ServeWs(hub *NotificationHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(10), 20), // 每秒10条，允许突发20条
	}

	go client.writePump()
	go client.readPump()
}
