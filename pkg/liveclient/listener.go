package liveclient

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"qa_forum_backend/internal/model"

	"github.com/gorilla/websocket"
)

const (
	dialTimeout = 10 * time.Second
	readWait    = 90 * time.Second
)

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Listener 维持通知 WebSocket 连接：握手后发送 subscribe 帧
// 加入本人房间，把 new_notification 事件写进本地 feed。
type Listener struct {
	URL    string
	Token  string
	UserID uint
	Feed   *NotificationFeed

	// OnNotification 每条新通知的可选回调，在入列 feed 之后调用
	OnNotification func(model.Notification)
}

// Run 阻塞运行直到 ctx 取消或连接断开。
// 重连策略由调用方决定，Listener 只管一条连接的生命周期。
func (l *Listener) Run(ctx context.Context) error {
	header := http.Header{}
	if l.Token != "" {
		header.Set("Authorization", "Bearer "+l.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, l.URL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	// ctx 取消时强制中断阻塞中的 ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	subscribe := map[string]interface{}{
		"type": "subscribe",
		"data": map[string]uint{"userId": l.UserID},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}

	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		var envelope wsEnvelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			continue
		}
		if envelope.Type != "new_notification" {
			continue
		}

		var n model.Notification
		if err := json.Unmarshal(envelope.Data, &n); err != nil {
			continue
		}

		if l.Feed != nil {
			l.Feed.Push(n)
		}
		if l.OnNotification != nil {
			l.OnNotification(n)
		}
	}
}
