// Package notification keeps the durable per-user record of every transition
// that affects a counterparty. Socket delivery may fail; the record may not.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"motortrade/internal/domain"
	"motortrade/internal/mailer"
	"motortrade/internal/store"
)

const mailTimeout = 10 * time.Second

type Recorder struct {
	store store.Store
	mail  mailer.Mailer
	now   func() time.Time
	wg    sync.WaitGroup
}

func NewRecorder(s store.Store, m mailer.Mailer, now func() time.Time) *Recorder {
	if m == nil {
		m = mailer.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: s, mail: m, now: now}
}

// RecordTx writes a notification as part of the caller's transaction.
func (r *Recorder) RecordTx(ctx context.Context, tx store.Writer, userID string, typ domain.NotificationType, content, relatedID string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Content:   content,
		RelatedID: relatedID,
		CreatedAt: r.now().UTC(),
	}
	if err := tx.PutNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Record writes a standalone notification and mirrors it by mail.
func (r *Recorder) Record(ctx context.Context, userID string, typ domain.NotificationType, content, relatedID string) (*domain.Notification, error) {
	var n *domain.Notification
	err := r.store.Update(ctx, func(tx store.Tx) error {
		var err error
		n, err = r.RecordTx(ctx, tx, userID, typ, content, relatedID)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.Mirror(*n)
	return n, nil
}

func (r *Recorder) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return r.store.ListNotifications(ctx, userID)
}

// MarkRead answers NotFound for notifications owned by someone else.
func (r *Recorder) MarkRead(ctx context.Context, id, callerID string) (*domain.Notification, error) {
	var n *domain.Notification
	err := r.store.Update(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.GetNotification(ctx, id)
		if err != nil {
			return err
		}
		if n.UserID != callerID {
			return domain.NotFoundf("notification %s", id)
		}
		if n.Read {
			return nil
		}
		n.Read = true
		return tx.PutNotification(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Mirror mails committed notifications in the background.
func (r *Recorder) Mirror(ns ...domain.Notification) {
	if len(ns) == 0 {
		return
	}
	if _, noop := r.mail.(mailer.Noop); noop {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		r.mirror(ctx, ns)
	}()
}

func (r *Recorder) mirror(ctx context.Context, ns []domain.Notification) {
	for _, n := range ns {
		u, err := r.store.GetUser(ctx, n.UserID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				zap.L().Warn("notification.mail_lookup", zap.String("user_id", n.UserID), zap.Error(err))
			}
			continue
		}
		if u.Email == "" {
			continue
		}
		if err := r.mail.Send(u.Email, subject(n.Type), n.Content); err != nil {
			zap.L().Warn("notification.mail",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID),
				zap.Error(err))
		}
	}
}

// Close waits for in-flight mail.
func (r *Recorder) Close() {
	r.wg.Wait()
}

func subject(t domain.NotificationType) string {
	switch t {
	case domain.NotificationNewBid:
		return "New bid on your auction"
	case domain.NotificationAuctionEnded:
		return "Auction ended"
	case domain.NotificationBidAccepted:
		return "Your bid was accepted"
	case domain.NotificationDealConfirmed:
		return "Deal confirmed"
	case domain.NotificationCollectionScheduled:
		return "Collection scheduled"
	case domain.NotificationCollectionConfirmed:
		return "Collection confirmed"
	case domain.NotificationAuctionArchived:
		return "Auction archived"
	}
	return "Motortrade notification"
}
