package irisfast

import "strings"

// Message is one chat event pushed by Iris over the websocket.
type Message struct {
	Msg    string       `json:"msg"`
	Room   string       `json:"room"`
	Sender *string      `json:"sender,omitempty"`
	JSON   *MessageJSON `json:"json,omitempty"`
}

// MessageJSON is the raw Kakao chat log row attached to a Message.
type MessageJSON struct {
	UserID  string `json:"user_id"`
	ChatID  string `json:"chat_id,omitempty"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

// UserID prefers the stable Kakao user id and falls back to the sender name.
func (m *Message) UserID() string {
	if m == nil {
		return ""
	}
	if m.JSON != nil && strings.TrimSpace(m.JSON.UserID) != "" {
		return strings.TrimSpace(m.JSON.UserID)
	}
	return m.SenderName()
}

func (m *Message) SenderName() string {
	if m == nil || m.Sender == nil {
		return ""
	}
	return strings.TrimSpace(*m.Sender)
}

// ReplyRequest is the /reply body and the websocket reply frame. Type is text or image.
type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

// Config mirrors GET /config.
type Config struct {
	BotName           string `json:"bot_name"`
	Port              int    `json:"bot_http_port"`
	PollingSpeed      int    `json:"db_polling_rate"`
	MessageRate       int    `json:"message_send_rate"`
	WebserverEndpoint string `json:"web_server_endpoint"`
}

type WebSocketState string

const (
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateReconnecting WebSocketState = "reconnecting"
	WSStateFailed       WebSocketState = "failed"
)
