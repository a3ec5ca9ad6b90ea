// Package chat implements the message router: the protocol state machine
// that accepts join, broadcast-send and direct-send commands, applies
// authorization, persists messages, and routes them to online connections
// and project feeds.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/crewchat-hq/crewchat/internal/member"
	"github.com/crewchat-hq/crewchat/internal/metrics"
	"github.com/crewchat-hq/crewchat/internal/models"
	"github.com/crewchat-hq/crewchat/internal/presence"
	"github.com/crewchat-hq/crewchat/internal/store"
)

// Router wires the presence registry, the message store, the membership
// directory and the project feeds together. All components are injected;
// the router holds no global state.
type Router struct {
	store     store.MessageStore
	directory member.Directory
	presence  *presence.Registry
	feeds     *Feeds
	logger    zerolog.Logger
}

// NewRouter creates a message router.
func NewRouter(st store.MessageStore, dir member.Directory, reg *presence.Registry, feeds *Feeds, logger zerolog.Logger) *Router {
	return &Router{
		store:     st,
		directory: dir,
		presence:  reg,
		feeds:     feeds,
		logger:    logger.With().Str("component", "chat").Logger(),
	}
}

// Join authorizes the user for the project, registers the connection,
// announces the join on the project feed, and then replays every pending
// direct message addressed to the user, oldest first. On authorization
// failure nothing is registered.
func (r *Router) Join(ctx context.Context, projectID, userID int64, conn presence.Conn) error {
	username, err := r.authorize(ctx, projectID, userID)
	if err != nil {
		return err
	}

	// Last-connection-wins: a prior session for this (project, user) pair is
	// displaced and force-closed so its client learns it lost the session.
	if prev := r.presence.Register(projectID, userID, conn); prev != nil {
		r.feeds.Unsubscribe(projectID, prev.ID())
		prev.Close()
		r.logger.Info().
			Int64("project_id", projectID).
			Int64("user_id", userID).
			Msg("displaced previous connection for rejoining user")
	}
	r.feeds.Subscribe(projectID, conn)

	r.feeds.Publish(projectID, models.NewJoinEvent(projectID, userID, username))

	return r.reconcile(ctx, userID, conn)
}

// reconcile delivers undelivered direct messages to a freshly joined
// connection in creation-timestamp order, flipping each row's delivered flag
// after a successful push. A failed push stops the replay; the remainder
// stays pending for the next join.
func (r *Router) reconcile(ctx context.Context, userID int64, conn presence.Conn) error {
	pending, err := r.store.PendingFor(ctx, userID)
	if err != nil {
		return persistence("failed to load pending messages", err)
	}

	senderNames := make(map[int64]string)
	for _, msg := range pending {
		name, ok := senderNames[msg.SenderID]
		if !ok {
			name, err = r.directory.UsernameForID(ctx, msg.SenderID)
			if err != nil {
				// A sender deleted since the message was stored still has a
				// pending row; deliver it without losing the replay.
				name = fmt.Sprintf("user-%d", msg.SenderID)
			}
			senderNames[msg.SenderID] = name
		}

		ev := models.NewChatEvent(msg.ProjectID, msg.SenderID, name, msg.Content, msg.CreatedAt)
		if err := conn.Push(ev); err != nil {
			r.logger.Warn().
				Err(err).
				Int64("message_id", msg.ID).
				Int64("user_id", userID).
				Msg("reconciliation push failed, leaving remainder pending")
			return nil
		}

		if err := r.store.MarkDelivered(ctx, msg.ID); err != nil {
			// The message went out but the flag did not commit; the next
			// join may replay it. At-least-once, by contract.
			r.logger.Warn().
				Err(err).
				Int64("message_id", msg.ID).
				Msg("failed to mark reconciled message delivered")
		}
		metrics.DirectDelivered.WithLabelValues("reconciled").Inc()
	}
	return nil
}

// SendBroadcast authorizes the sender, fans the message out to every
// subscriber on the project feed, and appends it to the store with
// delivered=true. The publish is allowed to race the durable write:
// broadcast durability is for history only, so an append failure after the
// fan-out is logged, not unwound.
func (r *Router) SendBroadcast(ctx context.Context, projectID, senderID int64, text string) error {
	username, err := r.authorize(ctx, projectID, senderID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	r.feeds.Publish(projectID, models.NewChatEvent(projectID, senderID, username, text, now))
	metrics.MessagesSent.WithLabelValues("broadcast").Inc()

	msg := &models.ChatMessage{
		ProjectID: projectID,
		SenderID:  senderID,
		Content:   text,
		CreatedAt: now,
		Delivered: true,
	}
	if _, err := r.store.Append(ctx, msg); err != nil {
		// Live recipients already saw the message; only the audit log is
		// short one row.
		r.logger.Warn().
			Err(err).
			Int64("project_id", projectID).
			Int64("sender_id", senderID).
			Msg("broadcast message delivered live but not recorded")
	}
	return nil
}

// SendDirect authorizes both parties, appends the message with
// delivered=false, and pushes it immediately if the receiver is online for
// the project. The append must succeed before any push is attempted; a
// message that cannot be recorded is reported as failed, never delivered.
func (r *Router) SendDirect(ctx context.Context, projectID, senderID, toUserID int64, text string) error {
	username, err := r.authorize(ctx, projectID, senderID)
	if err != nil {
		return err
	}
	ok, err := r.directory.IsCollaborator(ctx, toUserID, projectID)
	if err != nil {
		return fmt.Errorf("membership check for receiver %d: %w", toUserID, err)
	}
	if !ok {
		metrics.SendsDenied.WithLabelValues("authorization").Inc()
		return denied("user %d is not a collaborator on project %d", toUserID, projectID)
	}

	msg := &models.ChatMessage{
		ProjectID:  projectID,
		SenderID:   senderID,
		ReceiverID: &toUserID,
		Content:    text,
		Delivered:  false,
	}
	stored, err := r.store.Append(ctx, msg)
	if err != nil {
		return persistence("failed to record direct message", err)
	}
	metrics.MessagesSent.WithLabelValues("direct").Inc()

	conn, online := r.presence.Lookup(projectID, toUserID)
	if !online {
		// Delivered on the receiver's next join.
		return nil
	}

	ev := models.NewChatEvent(projectID, senderID, username, stored.Content, stored.CreatedAt)
	if err := conn.Push(ev); err != nil {
		r.logger.Debug().
			Err(err).
			Int64("message_id", stored.ID).
			Int64("receiver_id", toUserID).
			Msg("live push failed, message stays pending")
		return nil
	}

	if err := r.store.MarkDelivered(ctx, stored.ID); err != nil {
		// Pushed but not flagged: the next reconciliation may deliver it
		// again. Accepted at-least-once window.
		r.logger.Warn().
			Err(err).
			Int64("message_id", stored.ID).
			Msg("failed to mark direct message delivered after live push")
	}
	metrics.DirectDelivered.WithLabelValues("live").Inc()
	return nil
}

// Disconnect removes the connection from the presence registry and the
// project feed, then announces the leave. It has no message-side effects.
// Only the connection that registered an entry (or the liveness reaper
// acting for it) calls this. A connection that was already displaced by a
// newer session removes nothing and announces nothing.
func (r *Router) Disconnect(ctx context.Context, projectID, userID int64, conn presence.Conn) {
	removed := r.presence.Unregister(projectID, userID, conn.ID())
	r.feeds.Unsubscribe(projectID, conn.ID())
	if !removed {
		return
	}

	username, err := r.directory.UsernameForID(ctx, userID)
	if err != nil {
		username = fmt.Sprintf("user-%d", userID)
	}
	r.feeds.Publish(projectID, models.NewLeaveEvent(projectID, userID, username))
}

// authorize checks project membership for a user and resolves the username.
// Denied short-circuits before any persistence or routing.
func (r *Router) authorize(ctx context.Context, projectID, userID int64) (string, error) {
	ok, err := r.directory.IsCollaborator(ctx, userID, projectID)
	if err != nil {
		return "", fmt.Errorf("membership check for user %d: %w", userID, err)
	}
	if !ok {
		metrics.SendsDenied.WithLabelValues("authorization").Inc()
		return "", denied("user %d is not a collaborator on project %d", userID, projectID)
	}

	username, err := r.directory.UsernameForID(ctx, userID)
	if err != nil {
		if errors.Is(err, member.ErrUserNotFound) {
			metrics.SendsDenied.WithLabelValues("unknown_user").Inc()
			return "", unknownUser("user %d does not exist", userID)
		}
		return "", err
	}
	return username, nil
}
