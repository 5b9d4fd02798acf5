package entity

// Channel 逻辑 UI 通道，每个通道同一时刻至多一个活跃请求
type Channel string

const (
	ChannelChat   Channel = "chat"
	ChannelInline Channel = "inline"
)

// Channels 全部通道
var Channels = []Channel{ChannelChat, ChannelInline}

// Valid 是否属于封闭通道集合
func (c Channel) Valid() bool {
	switch c {
	case ChannelChat, ChannelInline:
		return true
	}
	return false
}

// ChunkType 流式分片类型
type ChunkType string

const (
	ChunkText  ChunkType = "text"
	ChunkError ChunkType = "error"
	ChunkDone  ChunkType = "done"
)

// Chunk 适配器产出的分片，不含关联信息
type Chunk struct {
	Type    ChunkType `json:"type"`
	Content string    `json:"content,omitempty"`
	Message string    `json:"message,omitempty"`
}

func TextChunk(content string) Chunk { return Chunk{Type: ChunkText, Content: content} }

func ErrorChunk(message string) Chunk { return Chunk{Type: ChunkError, Message: message} }

func DoneChunk() Chunk { return Chunk{Type: ChunkDone} }

// Terminal done / error 之后序列结束
func (c Chunk) Terminal() bool {
	return c.Type == ChunkDone || c.Type == ChunkError
}

// StreamChunk 协调器打上 requestId/channel 后广播的分片
type StreamChunk struct {
	RequestID      string    `json:"request_id"`
	Channel        Channel   `json:"channel"`
	Type           ChunkType `json:"type"`
	Content        string    `json:"content,omitempty"`
	Message        string    `json:"message,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// Stamp 为适配器分片附加关联信息
func Stamp(c Chunk, requestID string, channel Channel, conversationID string) StreamChunk {
	return StreamChunk{
		RequestID:      requestID,
		Channel:        channel,
		Type:           c.Type,
		Content:        c.Content,
		Message:        c.Message,
		ConversationID: conversationID,
	}
}
