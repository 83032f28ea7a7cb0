// Package session keeps one client's view of a battle in sync with the
// shared store. Each session is a single-goroutine actor: change
// notifications and a polling fallback both funnel into the same
// idempotent refresh, and client actions go through an optimistic local
// update followed by the authoritative commit. Whatever the store says
// on the next refresh always supersedes the optimistic state.
package session

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Fuzzydust/bb-CBA/internal/engine"
	"github.com/Fuzzydust/bb-CBA/internal/store"
)

const DefaultPollInterval = 3 * time.Second

type Msg interface{ isSessionMsg() }

type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

type Leave struct{ ClientID string }

// Act is a local player input. Illegal actions (out of turn, spent
// ability, non-active battle) are dropped without a store write.
type Act struct {
	Action engine.ActionType
}

type GetView struct {
	Reply chan Snapshot
}

type Shutdown struct{}

type refresh struct{}

func (Join) isSessionMsg()     {}
func (Leave) isSessionMsg()    {}
func (Act) isSessionMsg()      {}
func (GetView) isSessionMsg()  {}
func (Shutdown) isSessionMsg() {}
func (refresh) isSessionMsg()  {}

type Snapshot struct {
	Version int
	View    View
}

type Session struct {
	inbox    chan Msg
	store    store.Store
	log      *zap.Logger
	battleID string
	userID   string

	version int
	view    View
	loaded  bool
	closed  bool
	clients map[string]chan Snapshot

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, st store.Store, log *zap.Logger, battleID, userID string, pollInterval time.Duration) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:    make(chan Msg, 64),
		store:    st,
		log:      log.With(zap.String("battle_id", battleID), zap.String("user_id", userID)),
		battleID: battleID,
		userID:   userID,
		clients:  make(map[string]chan Snapshot),
		ctx:      ctx,
		cancel:   cancel,
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	go s.loop(pollInterval)
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done closes when the session has shut down, whether told to or after
// finding its battle gone. The hub uses it to reap dead sessions.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop(pollInterval time.Duration) {
	changes, unwatch := s.store.Watch(s.battleID)
	defer unwatch()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	s.reconcile()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-changes:
			s.reconcile()

		case <-ticker.C:
			// Poll fallback for notifications lost or issued by another
			// process. Harmless when nothing changed.
			s.reconcile()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				if s.loaded {
					msg.Outbox <- Snapshot{Version: s.version, View: s.view}
				}

			case Leave:
				delete(s.clients, msg.ClientID)
				if len(s.clients) == 0 && s.terminal() {
					// Nobody left watching a finished battle.
					s.shutdown()
					return
				}

			case Act:
				s.act(msg.Action)

			case GetView:
				msg.Reply <- Snapshot{Version: s.version, View: s.view}

			case refresh:
				s.reconcile()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) terminal() bool {
	return s.loaded && (s.view.Failed || s.view.Battle.Status == "completed")
}

func (s *Session) broadcast() {
	s.version++
	snap := Snapshot{Version: s.version, View: s.view}
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

// reconcile pulls the authoritative rows and replaces the local view.
// It is the single sink for both notification and poll triggers, and it
// silently corrects any optimistic state the store contradicted.
func (s *Session) reconcile() {
	battle, err := s.store.Battle(s.ctx, s.battleID)
	if errors.Is(err, store.ErrNotFound) {
		// Battle withdrawn; nothing left to synchronize.
		s.log.Info("battle gone, closing session")
		s.shutdown()
		return
	}
	if err != nil {
		// Transient store failure: keep the last good snapshot and let
		// the next tick retry.
		s.log.Warn("battle read failed", zap.Error(err))
		return
	}

	participants, err := s.store.Participants(s.ctx, s.battleID)
	if err != nil {
		s.log.Warn("participants read failed", zap.Error(err))
		return
	}

	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		card, err := s.store.Card(s.ctx, p.CardID)
		if errors.Is(err, store.ErrNotFound) {
			s.fail("participant references missing card", zap.String("card_id", p.CardID))
			return
		}
		if err != nil {
			s.log.Warn("card read failed", zap.Error(err))
			return
		}
		views = append(views, participantView(p, *card))
	}

	if battle.Status != "waiting" && len(views) != 2 {
		s.fail("battle has wrong participant count", zap.Int("count", len(views)))
		return
	}

	turns, err := s.store.Turns(s.ctx, s.battleID)
	if err != nil {
		s.log.Warn("turns read failed", zap.Error(err))
		return
	}
	lines, ok := s.buildLog(turns, views)
	if !ok {
		return
	}

	next := View{
		Battle:       battleView(*battle),
		Participants: views,
		ActionLog:    lines,
	}
	if s.loaded && reflect.DeepEqual(next, s.view) {
		// Redundant trigger (poll tick, duplicate notification).
		return
	}
	s.view = next
	s.loaded = true
	s.broadcast()
}

func battleView(b store.Battle) BattleView {
	v := BattleView{ID: b.ID, Status: b.Status}
	if b.CurrentTurn != nil {
		v.CurrentTurn = *b.CurrentTurn
	}
	if b.WinnerID != nil {
		v.WinnerID = *b.WinnerID
	}
	return v
}

// buildLog reconstructs the readable history from the append-only turn
// rows, newest first.
func (s *Session) buildLog(turns []store.Turn, participants []ParticipantView) ([]string, bool) {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		var actor *ParticipantView
		for i := range participants {
			if participants[i].ID == t.ParticipantID {
				actor = &participants[i]
				break
			}
		}
		if actor == nil {
			s.fail("turn references unknown participant", zap.String("turn_id", t.ID))
			return nil, false
		}
		lines = append(lines, logLine(engine.ActionType(t.ActionType), actor.Card.Name, actor.Card.SpecialAbility, t.DamageDealt))
	}
	return lines, true
}

func (s *Session) fail(msg string, fields ...zap.Field) {
	s.log.Error(msg, fields...)
	s.view.Failed = true
	s.broadcast()
}

// act runs the optimistic-then-commit pipeline for one local input.
func (s *Session) act(action engine.ActionType) {
	if !s.loaded || s.view.Failed {
		return
	}

	actor, opponent, ok := s.sides()
	if !ok {
		return
	}

	out, err := engine.Apply(battleState(s.view.Battle), actor.combatant(), opponent.combatant(), action)
	if err != nil {
		// Out of turn, spent ability, or a finished battle: ignore the
		// input locally, no store write.
		s.log.Debug("ignoring illegal action", zap.String("action", string(action)), zap.Error(err))
		return
	}

	s.predict(out, actor, opponent)
	s.commit(out, actor, opponent)
}

func (s *Session) sides() (actor, opponent *ParticipantView, ok bool) {
	for i := range s.view.Participants {
		if s.view.Participants[i].UserID == s.userID {
			actor = &s.view.Participants[i]
		} else {
			opponent = &s.view.Participants[i]
		}
	}
	return actor, opponent, actor != nil && opponent != nil
}

func battleState(b BattleView) engine.BattleState {
	return engine.BattleState{
		ID:          b.ID,
		Status:      engine.Status(b.Status),
		CurrentTurn: b.CurrentTurn,
		WinnerID:    b.WinnerID,
	}
}

// predict folds the outcome into the local view immediately. The result
// is tentative: the next reconcile replaces it wholesale with whatever
// the store holds.
func (s *Session) predict(out engine.Outcome, actor, opponent *ParticipantView) {
	actor.IsDefending = out.ActorDefending
	actor.HasUsedAbility = out.ActorUsedAbility
	opponent.CurrentHP = out.OpponentHP
	opponent.IsDefending = out.OpponentDefending

	// The turn token is written in both branches so the optimistic view
	// matches what reconcile will read back: completion leaves the token
	// on the winner, since the store never clears it.
	s.view.Battle.CurrentTurn = out.NextTurn
	if out.Completed {
		s.view.Battle.Status = "completed"
		s.view.Battle.WinnerID = out.WinnerUserID
	}

	line := logLine(out.Action, actor.Card.Name, actor.Card.SpecialAbility, out.Damage)
	s.view.ActionLog = append([]string{line}, s.view.ActionLog...)
	s.broadcast()
}

// commit writes the authoritative transition. Any failure falls back to
// a full reconcile so the local view never drifts from the store.
func (s *Session) commit(out engine.Outcome, actor, opponent *ParticipantView) {
	defending := out.ActorDefending
	usedAbility := out.ActorUsedAbility
	err := s.store.PatchParticipant(s.ctx, actor.ID, store.ParticipantPatch{
		IsDefending:    &defending,
		HasUsedAbility: &usedAbility,
	})
	if err == nil && out.Action != engine.ActionDefend {
		hp := out.OpponentHP
		cleared := false
		err = s.store.PatchParticipant(s.ctx, opponent.ID, store.ParticipantPatch{
			CurrentHP:   &hp,
			IsDefending: &cleared,
		})
	}

	if err == nil {
		var last int
		last, err = s.store.LastTurnNumber(s.ctx, s.battleID)
		if err == nil {
			err = s.store.AppendTurn(s.ctx, &store.Turn{
				ID:            uuid.NewString(),
				BattleID:      s.battleID,
				ParticipantID: actor.ID,
				ActionType:    string(out.Action),
				DamageDealt:   out.Damage,
				TurnNumber:    last + 1,
			})
		}
	}

	if err == nil {
		if out.Completed {
			err = s.store.CompleteBattle(s.ctx, s.battleID, out.WinnerUserID)
		} else {
			err = s.store.SetTurn(s.ctx, s.battleID, out.NextTurn)
		}
	}

	if err != nil {
		s.log.Warn("action commit failed, refetching authoritative state", zap.Error(err))
		s.reconcile()
	}
}
