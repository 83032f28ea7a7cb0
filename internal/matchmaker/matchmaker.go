// Package matchmaker pairs two intents-to-battle into one battle row.
// The protocol is search-then-claim: finding an open battle is a plain
// read, but claiming its second slot is a single conditional insert that
// fails atomically when another client got there first. Losing that race
// restarts the search; it never corrupts the battle.
package matchmaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Fuzzydust/bb-CBA/internal/engine"
	"github.com/Fuzzydust/bb-CBA/internal/store"
)

// ErrBattleActive reports that a cancellation lost the race against a
// join: the battle went active and can no longer be withdrawn.
var ErrBattleActive = errors.New("battle already active")

const searchLimit = 10

// Ticket identifies the caller's stake in a battle after Start returns.
// Waiting is true when no opponent was found and the caller should watch
// the battle for its transition to active.
type Ticket struct {
	BattleID      string
	ParticipantID string
	Position      int
	Waiting       bool
}

type Matchmaker struct {
	store store.Store
	log   *zap.Logger
}

func New(st store.Store, log *zap.Logger) *Matchmaker {
	return &Matchmaker{store: st, log: log}
}

// Start finds an open battle for the user or creates a fresh waiting
// one. Joining an existing battle also activates it, choosing the first
// turn from card speed.
func (m *Matchmaker) Start(ctx context.Context, userID, cardID string) (*Ticket, error) {
	card, err := m.store.Card(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("matchmaking card lookup: %w", err)
	}

	skip := map[string]bool{}
	for {
		candidate, opponent, err := m.findOpen(ctx, userID, skip)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			break
		}

		ticket, err := m.claim(ctx, candidate, opponent, userID, card)
		if errors.Is(err, store.ErrSlotTaken) {
			// Lost the join race; someone else is the second
			// participant now. Keep searching.
			m.log.Info("join race lost, resuming search",
				zap.String("battle_id", candidate.ID),
				zap.String("user_id", userID))
			skip[candidate.ID] = true
			continue
		}
		if err != nil {
			return nil, err
		}
		if ticket == nil {
			// Battle was withdrawn under us mid-claim.
			skip[candidate.ID] = true
			continue
		}
		return ticket, nil
	}

	return m.create(ctx, userID, card)
}

// Cancel withdraws a still-waiting battle so no opponent can join an
// abandoned session. The delete is conditioned on the waiting status: a
// concurrent join wins and the battle stays up.
func (m *Matchmaker) Cancel(ctx context.Context, battleID string) error {
	ok, err := m.store.DeleteIfWaiting(ctx, battleID)
	if err != nil {
		return fmt.Errorf("withdraw battle: %w", err)
	}
	if !ok {
		return ErrBattleActive
	}
	return nil
}

// findOpen returns a waiting battle with exactly one participant whose
// user differs from the joiner, or nil when none qualifies.
func (m *Matchmaker) findOpen(ctx context.Context, userID string, skip map[string]bool) (*store.Battle, *store.Participant, error) {
	battles, err := m.store.WaitingBattles(ctx, searchLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("search waiting battles: %w", err)
	}
	for i := range battles {
		b := &battles[i]
		if skip[b.ID] || len(b.Participants) != 1 {
			continue
		}
		if b.Participants[0].UserID == userID {
			continue
		}
		return b, &b.Participants[0], nil
	}
	return nil, nil, nil
}

func (m *Matchmaker) claim(ctx context.Context, b *store.Battle, opponent *store.Participant, userID string, card *store.Card) (*Ticket, error) {
	p := &store.Participant{
		ID:        uuid.NewString(),
		BattleID:  b.ID,
		UserID:    userID,
		CardID:    card.ID,
		CurrentHP: card.HP,
		Position:  2,
	}
	if err := m.store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}

	opponentCard, err := m.store.Card(ctx, opponent.CardID)
	if err != nil {
		return nil, fmt.Errorf("opponent card lookup: %w", err)
	}

	first := engine.FirstTurn(opponent.Combatant(*opponentCard), p.Combatant(*card))
	ok, err := m.store.ActivateIfWaiting(ctx, b.ID, first)
	if err != nil {
		return nil, fmt.Errorf("activate battle: %w", err)
	}
	if !ok {
		// The creator withdrew between our insert and the activation.
		// Back our participant out and let the caller search again.
		if err := m.store.DeleteParticipant(ctx, p.ID); err != nil {
			m.log.Warn("failed to back out participant after stale join",
				zap.String("participant_id", p.ID), zap.Error(err))
		}
		return nil, nil
	}

	m.log.Info("battle activated",
		zap.String("battle_id", b.ID),
		zap.String("first_turn", first))
	return &Ticket{BattleID: b.ID, ParticipantID: p.ID, Position: 2}, nil
}

func (m *Matchmaker) create(ctx context.Context, userID string, card *store.Card) (*Ticket, error) {
	b := &store.Battle{ID: uuid.NewString(), Status: "waiting"}
	if err := m.store.CreateBattle(ctx, b); err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}

	p := &store.Participant{
		ID:        uuid.NewString(),
		BattleID:  b.ID,
		UserID:    userID,
		CardID:    card.ID,
		CurrentHP: card.HP,
		Position:  1,
	}
	if err := m.store.AddParticipant(ctx, p); err != nil {
		if _, delErr := m.store.DeleteIfWaiting(ctx, b.ID); delErr != nil {
			m.log.Warn("failed to clean up orphaned battle",
				zap.String("battle_id", b.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("register participant: %w", err)
	}

	m.log.Info("waiting battle created",
		zap.String("battle_id", b.ID), zap.String("user_id", userID))
	return &Ticket{BattleID: b.ID, ParticipantID: p.ID, Position: 1, Waiting: true}, nil
}
