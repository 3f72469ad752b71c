package community

import "time"

const (
	TableMessages = "community_messages"
	TableLikes    = "message_likes"
	TableReplies  = "message_replies"

	defaultAnonymousName = "Anonymous"
)

// Message is a top-level post in a community.
type Message struct {
	ID            string    `gorm:"column:id;primaryKey;size:64;not null"`
	CommunityID   string    `gorm:"column:community_id;size:32;not null;index:idx_messages_community_created,priority:1"`
	UserID        string    `gorm:"column:user_id;size:64;not null;index"`
	AnonymousName string    `gorm:"column:anonymous_name;size:50"`
	Content       string    `gorm:"column:content;type:text;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index:idx_messages_community_created,priority:2"`
}

func (Message) TableName() string {
	return TableMessages
}

// Like records one member's like on a message.
type Like struct {
	ID          string    `gorm:"column:id;primaryKey;size:64;not null"`
	MessageID   string    `gorm:"column:message_id;size:64;not null;uniqueIndex:idx_likes_message_user,priority:1"`
	CommunityID string    `gorm:"column:community_id;size:32;not null;index"`
	UserID      string    `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_likes_message_user,priority:2"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (Like) TableName() string {
	return TableLikes
}

// Reply answers a message.
type Reply struct {
	ID            string    `gorm:"column:id;primaryKey;size:64;not null"`
	MessageID     string    `gorm:"column:message_id;size:64;not null;index:idx_replies_message_created,priority:1"`
	CommunityID   string    `gorm:"column:community_id;size:32;not null;index"`
	UserID        string    `gorm:"column:user_id;size:64;not null"`
	AnonymousName string    `gorm:"column:anonymous_name;size:50"`
	Content       string    `gorm:"column:content;type:text;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index:idx_replies_message_created,priority:2"`
}

func (Reply) TableName() string {
	return TableReplies
}

// MessageView is a message as rendered for a particular viewer.
type MessageView struct {
	ID            string      `json:"id"`
	CommunityID   string      `json:"community_id"`
	UserID        string      `json:"user_id"`
	AnonymousName string      `json:"anonymous_name"`
	Content       string      `json:"content"`
	CreatedAt     time.Time   `json:"created_at"`
	LikesCount    int         `json:"likes_count"`
	UserLiked     bool        `json:"user_liked"`
	Replies       []ReplyView `json:"replies"`
}

// ReplyView is a reply as rendered under its message.
type ReplyView struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	AnonymousName string    `json:"anonymous_name"`
}

// LikeState is the outcome of a like toggle.
type LikeState struct {
	MessageID  string `json:"message_id"`
	Liked      bool   `json:"liked"`
	LikesCount int64  `json:"likes_count"`
}

func displayName(name string) string {
	if name == "" {
		return defaultAnonymousName
	}
	return name
}

func newReplyView(reply Reply) ReplyView {
	return ReplyView{
		ID:            reply.ID,
		Content:       reply.Content,
		CreatedAt:     reply.CreatedAt,
		AnonymousName: displayName(reply.AnonymousName),
	}
}
