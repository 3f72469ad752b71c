// Package community implements the anonymous support chat: messages, likes, and replies.
package community

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mayursapkal41/MindNest/internal/identifier"
	"github.com/mayursapkal41/MindNest/internal/svcerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultMaxMessageLength = 2000
	DefaultMaxReplyLength   = 1000
	DefaultMessageCooldown  = 3 * time.Second
	DefaultReplyCooldown    = 2 * time.Second
)

var (
	ErrUnknownCommunity     = errors.New("community: unknown community")
	ErrMessageNotFound      = errors.New("community: message not found")
	ErrEmptyContent         = errors.New("community: content is empty")
	ErrTooLong              = errors.New("community: content too long")
	ErrInappropriateContent = errors.New("community: content contains inappropriate language")
	ErrCooldown             = errors.New("community: please wait a moment before posting again")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingProfiles   = errors.New("profile directory is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew   = "community.service.new"
	opListMessages = "community.list_messages"
	opPostMessage  = "community.post_message"
	opToggleLike   = "community.toggle_like"
	opPostReply    = "community.post_reply"
)

// ProfileDirectory resolves the anonymous name copied onto new posts.
type ProfileDirectory interface {
	AnonymousName(ctx context.Context, userID string) (string, error)
}

// ServiceConfig wires the community service.
type ServiceConfig struct {
	Database         *gorm.DB
	IDProvider       identifier.Provider
	Profiles         ProfileDirectory
	Filter           *Filter
	Cooldown         Cooldown
	Notifier         Notifier
	Clock            func() time.Time
	Logger           *zap.Logger
	MaxMessageLength int
	MaxReplyLength   int
	MessageCooldown  time.Duration
	ReplyCooldown    time.Duration
}

// Service coordinates community persistence, validation, and change notifications.
type Service struct {
	db               *gorm.DB
	idProvider       identifier.Provider
	profiles         ProfileDirectory
	filter           *Filter
	cooldown         Cooldown
	notifier         Notifier
	clock            func() time.Time
	logger           *zap.Logger
	maxMessageLength int
	maxReplyLength   int
	messageCooldown  time.Duration
	replyCooldown    time.Duration
}

// NewService constructs the community service, defaulting optional collaborators.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, svcerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, svcerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Profiles == nil {
		return nil, svcerr.New(opServiceNew, "missing_profiles", errMissingProfiles)
	}

	service := &Service{
		db:               cfg.Database,
		idProvider:       cfg.IDProvider,
		profiles:         cfg.Profiles,
		filter:           cfg.Filter,
		cooldown:         cfg.Cooldown,
		notifier:         cfg.Notifier,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
		maxMessageLength: cfg.MaxMessageLength,
		maxReplyLength:   cfg.MaxReplyLength,
		messageCooldown:  cfg.MessageCooldown,
		replyCooldown:    cfg.ReplyCooldown,
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	if service.filter == nil {
		service.filter = NewFilter()
	}
	if service.cooldown == nil {
		service.cooldown = NewMemoryCooldown(service.clock)
	}
	if service.notifier == nil {
		service.notifier = nopNotifier{}
	}
	if service.logger == nil {
		service.logger = noOpLogger
	}
	if service.maxMessageLength <= 0 {
		service.maxMessageLength = DefaultMaxMessageLength
	}
	if service.maxReplyLength <= 0 {
		service.maxReplyLength = DefaultMaxReplyLength
	}
	if service.messageCooldown <= 0 {
		service.messageCooldown = DefaultMessageCooldown
	}
	if service.replyCooldown <= 0 {
		service.replyCooldown = DefaultReplyCooldown
	}
	return service, nil
}

// ListMessages returns a community's messages oldest first, each with its like count, the
// viewer's like state, and its replies oldest first.
func (s *Service) ListMessages(ctx context.Context, communityID, viewerID string) ([]MessageView, error) {
	if _, ok := Lookup(communityID); !ok {
		return nil, svcerr.New(opListMessages, "unknown_community", ErrUnknownCommunity)
	}

	db := s.db.WithContext(ctx)
	var messages []Message
	if err := db.Where("community_id = ?", communityID).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error; err != nil {
		s.logError(opListMessages, "message_query_failed", err, zap.String("community_id", communityID))
		return nil, svcerr.New(opListMessages, "message_query_failed", err)
	}
	if len(messages) == 0 {
		return []MessageView{}, nil
	}

	messageIDs := make([]string, len(messages))
	for index, message := range messages {
		messageIDs[index] = message.ID
	}

	var likes []Like
	if err := db.Select("message_id", "user_id").
		Where("message_id IN ?", messageIDs).
		Find(&likes).Error; err != nil {
		s.logError(opListMessages, "like_query_failed", err, zap.String("community_id", communityID))
		return nil, svcerr.New(opListMessages, "like_query_failed", err)
	}
	likeCounts := make(map[string]int, len(messages))
	viewerLikes := make(map[string]bool)
	for _, like := range likes {
		likeCounts[like.MessageID]++
		if like.UserID == viewerID {
			viewerLikes[like.MessageID] = true
		}
	}

	var replies []Reply
	if err := db.Where("message_id IN ?", messageIDs).
		Order("created_at ASC").Order("id ASC").
		Find(&replies).Error; err != nil {
		s.logError(opListMessages, "reply_query_failed", err, zap.String("community_id", communityID))
		return nil, svcerr.New(opListMessages, "reply_query_failed", err)
	}
	repliesByMessage := make(map[string][]ReplyView, len(messages))
	for _, reply := range replies {
		repliesByMessage[reply.MessageID] = append(repliesByMessage[reply.MessageID], newReplyView(reply))
	}

	views := make([]MessageView, 0, len(messages))
	for _, message := range messages {
		messageReplies := repliesByMessage[message.ID]
		if messageReplies == nil {
			messageReplies = []ReplyView{}
		}
		views = append(views, MessageView{
			ID:            message.ID,
			CommunityID:   message.CommunityID,
			UserID:        message.UserID,
			AnonymousName: displayName(message.AnonymousName),
			Content:       message.Content,
			CreatedAt:     message.CreatedAt,
			LikesCount:    likeCounts[message.ID],
			UserLiked:     viewerLikes[message.ID],
			Replies:       messageReplies,
		})
	}
	return views, nil
}

// PostMessage validates and stores a new message.
func (s *Service) PostMessage(ctx context.Context, communityID, userID, content string) (MessageView, error) {
	if _, ok := Lookup(communityID); !ok {
		return MessageView{}, svcerr.New(opPostMessage, "unknown_community", ErrUnknownCommunity)
	}
	if strings.TrimSpace(userID) == "" {
		return MessageView{}, svcerr.New(opPostMessage, "missing_user_id", errMissingUserID)
	}
	trimmed, err := s.validateContent(opPostMessage, content, s.maxMessageLength)
	if err != nil {
		return MessageView{}, err
	}

	anonymousName, err := s.profiles.AnonymousName(ctx, userID)
	if err != nil {
		s.logError(opPostMessage, "profile_lookup_failed", err, zap.String("user_id", userID))
		return MessageView{}, svcerr.New(opPostMessage, "profile_lookup_failed", err)
	}
	messageID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opPostMessage, "id_generation_failed", err)
		return MessageView{}, svcerr.New(opPostMessage, "id_generation_failed", err)
	}

	cooldownKey := messageCooldownKey(userID)
	if err := s.reserveCooldown(ctx, opPostMessage, cooldownKey, s.messageCooldown); err != nil {
		return MessageView{}, err
	}

	message := Message{
		ID:            messageID,
		CommunityID:   communityID,
		UserID:        userID,
		AnonymousName: anonymousName,
		Content:       trimmed,
		CreatedAt:     s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		s.logError(opPostMessage, "insert_failed", err, zap.String("community_id", communityID))
		s.releaseCooldown(ctx, opPostMessage, cooldownKey)
		return MessageView{}, svcerr.New(opPostMessage, "insert_failed", err)
	}

	s.notifier.Publish(Event{CommunityID: communityID, Table: TableMessages, Kind: KindInsert})
	return MessageView{
		ID:            message.ID,
		CommunityID:   message.CommunityID,
		UserID:        message.UserID,
		AnonymousName: displayName(message.AnonymousName),
		Content:       message.Content,
		CreatedAt:     message.CreatedAt,
		Replies:       []ReplyView{},
	}, nil
}

// ToggleLike removes the user's like when present and adds it otherwise.
func (s *Service) ToggleLike(ctx context.Context, messageID, userID string) (LikeState, error) {
	if strings.TrimSpace(userID) == "" {
		return LikeState{}, svcerr.New(opToggleLike, "missing_user_id", errMissingUserID)
	}

	state := LikeState{MessageID: messageID}
	var communityID string
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		message, err := s.findMessage(tx, opToggleLike, messageID)
		if err != nil {
			return err
		}
		communityID = message.CommunityID

		deleted := tx.Where("message_id = ? AND user_id = ?", messageID, userID).Delete(&Like{})
		if deleted.Error != nil {
			s.logError(opToggleLike, "delete_failed", deleted.Error, zap.String("message_id", messageID))
			return svcerr.New(opToggleLike, "delete_failed", deleted.Error)
		}
		if deleted.RowsAffected == 0 {
			likeID, err := s.idProvider.NewID()
			if err != nil {
				s.logError(opToggleLike, "id_generation_failed", err)
				return svcerr.New(opToggleLike, "id_generation_failed", err)
			}
			like := Like{
				ID:          likeID,
				MessageID:   messageID,
				CommunityID: message.CommunityID,
				UserID:      userID,
				CreatedAt:   s.clock().UTC(),
			}
			if err := tx.Create(&like).Error; err != nil {
				s.logError(opToggleLike, "insert_failed", err, zap.String("message_id", messageID))
				return svcerr.New(opToggleLike, "insert_failed", err)
			}
			state.Liked = true
		}

		if err := tx.Model(&Like{}).Where("message_id = ?", messageID).Count(&state.LikesCount).Error; err != nil {
			s.logError(opToggleLike, "count_failed", err, zap.String("message_id", messageID))
			return svcerr.New(opToggleLike, "count_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return LikeState{}, txErr
	}

	kind := KindDelete
	if state.Liked {
		kind = KindInsert
	}
	s.notifier.Publish(Event{CommunityID: communityID, Table: TableLikes, Kind: kind})
	return state, nil
}

// PostReply validates and stores a reply under an existing message.
func (s *Service) PostReply(ctx context.Context, messageID, userID, content string) (ReplyView, error) {
	if strings.TrimSpace(userID) == "" {
		return ReplyView{}, svcerr.New(opPostReply, "missing_user_id", errMissingUserID)
	}
	message, err := s.findMessage(s.db.WithContext(ctx), opPostReply, messageID)
	if err != nil {
		return ReplyView{}, err
	}
	trimmed, err := s.validateContent(opPostReply, content, s.maxReplyLength)
	if err != nil {
		return ReplyView{}, err
	}

	anonymousName, err := s.profiles.AnonymousName(ctx, userID)
	if err != nil {
		s.logError(opPostReply, "profile_lookup_failed", err, zap.String("user_id", userID))
		return ReplyView{}, svcerr.New(opPostReply, "profile_lookup_failed", err)
	}
	replyID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opPostReply, "id_generation_failed", err)
		return ReplyView{}, svcerr.New(opPostReply, "id_generation_failed", err)
	}

	cooldownKey := replyCooldownKey(userID)
	if err := s.reserveCooldown(ctx, opPostReply, cooldownKey, s.replyCooldown); err != nil {
		return ReplyView{}, err
	}

	reply := Reply{
		ID:            replyID,
		MessageID:     message.ID,
		CommunityID:   message.CommunityID,
		UserID:        userID,
		AnonymousName: anonymousName,
		Content:       trimmed,
		CreatedAt:     s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&reply).Error; err != nil {
		s.logError(opPostReply, "insert_failed", err, zap.String("message_id", messageID))
		s.releaseCooldown(ctx, opPostReply, cooldownKey)
		return ReplyView{}, svcerr.New(opPostReply, "insert_failed", err)
	}

	s.notifier.Publish(Event{CommunityID: message.CommunityID, Table: TableReplies, Kind: KindInsert})
	return newReplyView(reply), nil
}

// validateContent trims content and rejects it when empty, too long, or denylisted, in that order.
func (s *Service) validateContent(operation, content string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", svcerr.New(operation, "empty_content", ErrEmptyContent)
	}
	if utf8.RuneCountInString(trimmed) > maxLength {
		return "", svcerr.New(operation, "too_long", ErrTooLong)
	}
	if s.filter.Contains(trimmed) {
		return "", svcerr.New(operation, "inappropriate_content", ErrInappropriateContent)
	}
	return trimmed, nil
}

// reserveCooldown runs immediately before the insert so only stored posts start a window.
func (s *Service) reserveCooldown(ctx context.Context, operation, key string, window time.Duration) error {
	reserved, err := s.cooldown.Reserve(ctx, key, window)
	if err != nil {
		s.logError(operation, "cooldown_failed", err, zap.String("key", key))
		return svcerr.New(operation, "cooldown_failed", err)
	}
	if !reserved {
		return svcerr.New(operation, "cooldown", ErrCooldown)
	}
	return nil
}

func (s *Service) releaseCooldown(ctx context.Context, operation, key string) {
	if err := s.cooldown.Release(ctx, key); err != nil {
		s.logError(operation, "cooldown_release_failed", err, zap.String("key", key))
	}
}

func (s *Service) findMessage(db *gorm.DB, operation, messageID string) (Message, error) {
	if strings.TrimSpace(messageID) == "" {
		return Message{}, svcerr.New(operation, "message_not_found", ErrMessageNotFound)
	}
	var message Message
	err := db.Where("id = ?", messageID).Take(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Message{}, svcerr.New(operation, "message_not_found", ErrMessageNotFound)
	}
	if err != nil {
		s.logError(operation, "message_select_failed", err, zap.String("message_id", messageID))
		return Message{}, svcerr.New(operation, "message_select_failed", err)
	}
	return message, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("community service error", attrs...)
}
