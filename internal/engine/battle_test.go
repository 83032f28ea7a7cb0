package engine

import (
	"errors"
	"testing"
)

func activeBattle(turn string) BattleState {
	return BattleState{ID: "b1", Status: StatusActive, CurrentTurn: turn}
}

func fighters() (Combatant, Combatant) {
	p1 := Combatant{
		ID: "p1", UserID: "u1", Position: 1, CurrentHP: 300,
		Card: Card{Name: "Salamander", HP: 300, Attack: 60, Defense: 20, Speed: 50, CardType: TypeFire, AbilityPower: 70},
	}
	p2 := Combatant{
		ID: "p2", UserID: "u2", Position: 2, CurrentHP: 500,
		Card: Card{Name: "Volt", HP: 500, Attack: 40, Defense: 10, Speed: 30, CardType: TypeElectric, AbilityPower: 55},
	}
	return p1, p2
}

func TestApplyRejectsIllegalActions(t *testing.T) {
	p1, p2 := fighters()

	cases := []struct {
		name    string
		battle  BattleState
		actor   Combatant
		action  ActionType
		wantErr error
	}{
		{
			name:    "waiting battle",
			battle:  BattleState{ID: "b1", Status: StatusWaiting},
			actor:   p1,
			action:  ActionAttack,
			wantErr: ErrNotActive,
		},
		{
			name:    "completed battle",
			battle:  BattleState{ID: "b1", Status: StatusCompleted, CurrentTurn: "p1"},
			actor:   p1,
			action:  ActionAttack,
			wantErr: ErrNotActive,
		},
		{
			name:    "not the turn holder",
			battle:  activeBattle("p2"),
			actor:   p1,
			action:  ActionAttack,
			wantErr: ErrWrongTurn,
		},
		{
			name:    "ability already spent",
			battle:  activeBattle("p1"),
			actor:   func() Combatant { c := p1; c.HasUsedAbility = true; return c }(),
			action:  ActionAbility,
			wantErr: ErrAbilityUsed,
		},
		{
			name:    "unknown action",
			battle:  activeBattle("p1"),
			actor:   p1,
			action:  ActionType("flee"),
			wantErr: ErrUnknownAction,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(tc.battle, tc.actor, p2, tc.action)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Apply() err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestApplyAttackPassesTurn(t *testing.T) {
	p1, p2 := fighters()

	out, err := Apply(activeBattle("p1"), p1, p2, ActionAttack)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Damage != 80 {
		t.Fatalf("damage = %d, want 80", out.Damage)
	}
	if out.OpponentHP != 420 {
		t.Fatalf("opponent hp = %d, want 420", out.OpponentHP)
	}
	if out.NextTurn != "p2" || out.Completed {
		t.Fatalf("turn should pass to p2, got next=%q completed=%v", out.NextTurn, out.Completed)
	}
	if out.ActorDefending {
		t.Fatalf("attack must clear the actor's defend posture")
	}
}

func TestApplyDefendDealsNoDamage(t *testing.T) {
	p1, p2 := fighters()

	out, err := Apply(activeBattle("p2"), p2, p1, ActionDefend)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Damage != 0 {
		t.Fatalf("defend dealt %d damage", out.Damage)
	}
	if !out.ActorDefending {
		t.Fatalf("defend must set the actor's posture")
	}
	if out.OpponentHP != p1.CurrentHP {
		t.Fatalf("defend must not change opponent hp")
	}
	if out.NextTurn != "p1" {
		t.Fatalf("turn should pass to p1, got %q", out.NextTurn)
	}
}

func TestApplyDefendKeepsOpponentPosture(t *testing.T) {
	p1, p2 := fighters()
	p1.IsDefending = true

	// p2 hunkering down must not consume p1's posture; only being
	// attacked does that.
	out, err := Apply(activeBattle("p2"), p2, p1, ActionDefend)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !out.OpponentDefending {
		t.Fatalf("opponent posture must survive the actor's defend")
	}

	out, err = Apply(activeBattle("p2"), p2, p1, ActionAttack)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.OpponentDefending {
		t.Fatalf("attack must consume the opponent's posture")
	}
}

func TestApplyAbilityIsMetered(t *testing.T) {
	p1, p2 := fighters()

	out, err := Apply(activeBattle("p1"), p1, p2, ActionAbility)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !out.ActorUsedAbility {
		t.Fatalf("ability use must stick")
	}
	// 70 * 1.5 = 105, minus half of defense 10
	if out.Damage != 100 {
		t.Fatalf("ability damage = %d, want 100", out.Damage)
	}
}

func TestApplyWinDetection(t *testing.T) {
	p1, p2 := fighters()
	p2.CurrentHP = 50

	out, err := Apply(activeBattle("p1"), p1, p2, ActionAttack)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.OpponentHP != 0 {
		t.Fatalf("hp = %d, want floor at 0", out.OpponentHP)
	}
	if !out.Completed || out.WinnerUserID != "u1" {
		t.Fatalf("expected completion with winner u1, got completed=%v winner=%q", out.Completed, out.WinnerUserID)
	}
	if out.NextTurn != "p1" {
		t.Fatalf("winning action must keep the turn token on the actor, got %q", out.NextTurn)
	}
}

func TestFirstTurn(t *testing.T) {
	p1, p2 := fighters()

	if got := FirstTurn(p1, p2); got != "p1" {
		t.Fatalf("faster card should open, got %q", got)
	}
	if got := FirstTurn(p2, p1); got != "p1" {
		t.Fatalf("argument order must not matter, got %q", got)
	}

	p2.Card.Speed = p1.Card.Speed
	if got := FirstTurn(p1, p2); got != "p1" {
		t.Fatalf("speed tie should favor position 1, got %q", got)
	}

	p2.Card.Speed = p1.Card.Speed + 1
	if got := FirstTurn(p1, p2); got != "p2" {
		t.Fatalf("faster joiner should open, got %q", got)
	}
}
