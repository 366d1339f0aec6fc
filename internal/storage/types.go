package storage

// ChatMeta describes a chat record at creation time.
type ChatMeta struct {
	UserID string `json:"user_id,omitempty"`
	Title  string `json:"title,omitempty"`
}

// ChatMessage is one entry in a chat's append-only message log.
type ChatMessage struct {
	ID        string `json:"id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at,omitempty"`
}
