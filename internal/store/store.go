// Package store is the shared record store both clients act through.
// It exposes row-level CRUD on the battle tables plus a change
// notification stream. The only cross-client coordination primitives are
// the conditional writes: claiming a participant slot is a single insert
// that fails atomically when the slot is taken, and activation or
// withdrawal of a battle only applies while the battle is still waiting.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// ErrInvalidCard rejects cards with negative stats. The stat point
// budget itself is an authoring-flow concern.
var ErrInvalidCard = errors.New("card stats must be non-negative")

// ErrSlotTaken reports that a conditional participant insert lost the
// join race: another client already holds that battle position.
var ErrSlotTaken = errors.New("participant slot already taken")

// Event classifies a change notification.
type Event string

const (
	EventInsert Event = "insert"
	EventUpdate Event = "update"
	EventDelete Event = "delete"
)

// Change is one notification on a battle's rows. Delivery is
// at-least-once and carries no payload: consumers re-read the rows.
// Notifications are not ordered relative to reads of the same rows.
type Change struct {
	Table    string
	Event    Event
	BattleID string
}

// ParticipantPatch is a partial update of a participant's mutable
// battle-local fields. Nil fields are left untouched.
type ParticipantPatch struct {
	CurrentHP      *int
	IsDefending    *bool
	HasUsedAbility *bool
}

// Store is the record store contract the engine-side components depend
// on. Implementations must honor the conditional-write semantics: the
// (battle, position) pair is unique, and the If* operations report
// whether their status condition held at commit time.
type Store interface {
	CreateCard(ctx context.Context, c *Card) error
	Card(ctx context.Context, id string) (*Card, error)

	CreateBattle(ctx context.Context, b *Battle) error
	Battle(ctx context.Context, id string) (*Battle, error)
	WaitingBattles(ctx context.Context, limit int) ([]Battle, error)

	// ActivateIfWaiting transitions a battle to active with the opening
	// turn token. Reports false when the battle was no longer waiting.
	ActivateIfWaiting(ctx context.Context, battleID, firstTurn string) (bool, error)
	// DeleteIfWaiting withdraws a battle and its participants. Reports
	// false when the battle already went active.
	DeleteIfWaiting(ctx context.Context, battleID string) (bool, error)
	SetTurn(ctx context.Context, battleID, participantID string) error
	CompleteBattle(ctx context.Context, battleID, winnerUserID string) error

	// AddParticipant claims a battle slot. Returns ErrSlotTaken when
	// another participant already holds the same (battle, position).
	AddParticipant(ctx context.Context, p *Participant) error
	Participants(ctx context.Context, battleID string) ([]Participant, error)
	PatchParticipant(ctx context.Context, id string, patch ParticipantPatch) error
	DeleteParticipant(ctx context.Context, id string) error

	AppendTurn(ctx context.Context, t *Turn) error
	// Turns returns the battle's committed turns, newest first.
	Turns(ctx context.Context, battleID string) ([]Turn, error)
	LastTurnNumber(ctx context.Context, battleID string) (int, error)

	// Watch subscribes to change notifications for one battle. The
	// returned cancel func releases the subscription.
	Watch(battleID string) (<-chan Change, func())
}
