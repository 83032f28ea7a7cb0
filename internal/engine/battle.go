package engine

import "errors"

var ErrNotActive = errors.New("battle is not active")
var ErrWrongTurn = errors.New("not this participant's turn")
var ErrNotInBattle = errors.New("participant does not belong to battle")
var ErrAbilityUsed = errors.New("special ability already used")
var ErrUnknownAction = errors.New("unknown action type")

// Outcome is the full effect of one committed action. It carries every
// field the caller must write back to the store, so the commit and the
// optimistic local update are driven by the same computation.
type Outcome struct {
	Action ActionType
	Damage int

	ActorDefending   bool
	ActorUsedAbility bool

	OpponentHP        int
	OpponentDefending bool

	// NextTurn is the participant id holding the turn token after this
	// action. A winning action keeps the token on the actor: the token
	// is only ever empty while a battle is still waiting for an
	// opponent.
	NextTurn     string
	Completed    bool
	WinnerUserID string
}

// Apply is the turn authority. It validates that the action is legal for
// the actor right now and returns the resulting state transition. The
// returned outcome never regresses battle status, never hands the turn
// token outside the two participants, and never drives HP negative.
func Apply(b BattleState, actor, opponent Combatant, action ActionType) (Outcome, error) {
	if b.Status != StatusActive {
		return Outcome{}, ErrNotActive
	}
	if actor.ID != b.CurrentTurn {
		return Outcome{}, ErrWrongTurn
	}
	if opponent.ID == actor.ID {
		return Outcome{}, ErrNotInBattle
	}

	out := Outcome{
		Action:            action,
		ActorUsedAbility:  actor.HasUsedAbility,
		OpponentHP:        opponent.CurrentHP,
		OpponentDefending: opponent.IsDefending,
		NextTurn:          opponent.ID,
	}

	switch action {
	case ActionDefend:
		out.ActorDefending = true
		// The opponent's posture is consumed by being attacked, not by
		// the actor hunkering down.
		return out, nil

	case ActionAbility:
		if actor.HasUsedAbility {
			return Outcome{}, ErrAbilityUsed
		}
		out.ActorUsedAbility = true

	case ActionAttack:
		// nothing extra to guard

	default:
		return Outcome{}, ErrUnknownAction
	}

	out.Damage = Resolve(actor, opponent, action)
	out.OpponentHP = opponent.CurrentHP - out.Damage
	if out.OpponentHP < 0 {
		out.OpponentHP = 0
	}
	out.OpponentDefending = false

	if out.OpponentHP == 0 {
		out.Completed = true
		out.WinnerUserID = actor.UserID
		out.NextTurn = actor.ID
	}
	return out, nil
}

// FirstTurn picks the opening turn token from card speed. Ties favor the
// participant who created the battle (position 1).
func FirstTurn(p1, p2 Combatant) string {
	if p1.Position > p2.Position {
		p1, p2 = p2, p1
	}
	if p1.Card.Speed >= p2.Card.Speed {
		return p1.ID
	}
	return p2.ID
}
