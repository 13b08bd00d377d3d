package realtime

import "github.com/google/uuid"

type EventType string

const (
	EventChatStream         EventType = "chat_stream"
	EventStreamEnd          EventType = "stream_end"
	EventEmotionResult      EventType = "emotion_analysis_result"
	EventError              EventType = "error"
	EventProactiveAvailable EventType = "proactive.message.notification"
)

const (
	StatusSuccess        = "success"
	StatusSuccessPassive = "success_passive"
	StatusEmotionPassive = "emotion_ready_passive"
	StatusProactiveReady = "new_proactive_message_available"
)

const (
	ErrMsgInvalidJSON = "잘못된 JSON 형식입니다."
	ErrMsgInternal    = "서버 내부 오류 발생."
	ErrMsgAIFailure   = "AI 연결 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
)

// Message is one frame addressed to a channel. On the wire the frame is
// Data flattened next to a "type" field.
type Message struct {
	Channel string         `json:"channel"`
	Type    EventType      `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
}

func (m Message) Frame() map[string]any {
	out := make(map[string]any, len(m.Data)+1)
	for k, v := range m.Data {
		out[k] = v
	}
	out["type"] = string(m.Type)
	return out
}

// UserChannel is the per-user channel every live connection of that user joins.
func UserChannel(userID uuid.UUID) string {
	return "chat_user_" + userID.String()
}

func ChatStream(chunk string) Message {
	return Message{Type: EventChatStream, Data: map[string]any{"message_chunk": chunk}}
}

func StreamEnd(status, emotion string) Message {
	return Message{Type: EventStreamEnd, Data: map[string]any{"status": status, "emotion": emotion}}
}

func EmotionResult(emotion string) Message {
	return Message{Type: EventEmotionResult, Data: map[string]any{"emotion": emotion, "status": StatusEmotionPassive}}
}

func Error(message string) Message {
	return Message{Type: EventError, Data: map[string]any{"message": message}}
}

func ProactiveAvailable(userID uuid.UUID) Message {
	return Message{
		Channel: UserChannel(userID),
		Type:    EventProactiveAvailable,
		Data: map[string]any{
			"status": StatusProactiveReady,
			"detail": "서버에 새로운 능동 메시지가 대기 중입니다.",
		},
	}
}
