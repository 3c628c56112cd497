package utils

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muhasabahAPI/internal/notification"
)

// NotificationCreator is the one method the triggers need from the
// notification service.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

// JoinRequestReceived tells a sitting's leader that someone asked to join.
func JoinRequestReceived(ctx context.Context, notifier NotificationCreator, log *zap.Logger, leaderID uuid.UUID, username, sittingName string) {
	req := &notification.CreateNotificationRequest{
		UserID:  leaderID,
		Type:    notification.NotificationJoinRequest,
		Title:   "New join request",
		Message: fmt.Sprintf("%s has requested to join %s.", username, sittingName),
		Data:    map[string]any{"username": username, "sitting": sittingName},
	}
	if _, err := notifier.CreateNotification(ctx, req); err != nil {
		log.Warn("failed to notify leader of join request",
			zap.Stringer("leader_id", leaderID), zap.String("sitting", sittingName), zap.Error(err))
	}
}

// MembershipApproved tells a member their request was approved.
func MembershipApproved(ctx context.Context, notifier NotificationCreator, log *zap.Logger, userID uuid.UUID, sittingName string) {
	req := &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.NotificationApproval,
		Title:   "Membership approved",
		Message: fmt.Sprintf("Your request to join %s has been approved.", sittingName),
		Data:    map[string]any{"sitting": sittingName},
	}
	if _, err := notifier.CreateNotification(ctx, req); err != nil {
		log.Warn("failed to notify member of approval",
			zap.Stringer("user_id", userID), zap.String("sitting", sittingName), zap.Error(err))
	}
}

// CommentReceived tells a person someone left them a comment.
func CommentReceived(ctx context.Context, notifier NotificationCreator, log *zap.Logger, recipientID uuid.UUID, author string) {
	req := &notification.CreateNotificationRequest{
		UserID:  recipientID,
		Type:    notification.NotificationComment,
		Title:   "New comment",
		Message: fmt.Sprintf("%s left you a comment.", author),
	}
	if _, err := notifier.CreateNotification(ctx, req); err != nil {
		log.Warn("failed to notify comment recipient", zap.Stringer("user_id", recipientID), zap.Error(err))
	}
}
