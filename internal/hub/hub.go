// Package hub owns the live sessions of this process. One session
// exists per (battle, user) pair: each connected client synchronizes
// through its own session actor, never through the opponent's.
package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Fuzzydust/bb-CBA/internal/session"
	"github.com/Fuzzydust/bb-CBA/internal/store"
)

type HubMsg interface{ isHubMsg() }

type EnsureSession struct {
	BattleID string
	UserID   string
	Reply    chan *session.Session
}

type GetSession struct {
	BattleID string
	UserID   string
	Reply    chan *session.Session
}

type RemoveSession struct {
	BattleID string
	UserID   string
}

type ShutdownHub struct{}

// reap is posted by the per-session watcher once a session's Done
// channel closes. It carries the pointer so a replacement created in
// the meantime is never evicted.
type reap struct {
	key     string
	session *session.Session
}

func (EnsureSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}
func (reap) isHubMsg()          {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	store    store.Store
	log      *zap.Logger
	poll     time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, st store.Store, log *zap.Logger, poll time.Duration) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		store:    st,
		log:      log,
		poll:     poll,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func key(battleID, userID string) string { return battleID + "/" + userID }

func dead(s *session.Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

// watch evicts the session from the registry when it shuts down, so a
// finished or withdrawn battle does not pin its sessions forever and a
// reconnecting client gets a fresh one.
func (h *Hub) watch(k string, s *session.Session) {
	select {
	case <-s.Done():
		select {
		case h.inbox <- reap{key: k, session: s}:
		case <-h.ctx.Done():
		}
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureSession:
				k := key(msg.BattleID, msg.UserID)
				if s := h.sessions[k]; s != nil && !dead(s) {
					msg.Reply <- s
					break
				}
				s := session.New(h.ctx, h.store, h.log, msg.BattleID, msg.UserID, h.poll)
				h.sessions[k] = s
				go h.watch(k, s)
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[key(msg.BattleID, msg.UserID)] // May be nil

			case RemoveSession:
				k := key(msg.BattleID, msg.UserID)
				if s := h.sessions[k]; s != nil {
					s.Inbox() <- session.Shutdown{}
					delete(h.sessions, k)
				}

			case reap:
				if h.sessions[msg.key] == msg.session {
					delete(h.sessions, msg.key)
				}

			case ShutdownHub:
				for _, s := range h.sessions {
					s.Inbox() <- session.Shutdown{}
				}
				clear(h.sessions)
				h.cancel()
			}
		}
	}
}
