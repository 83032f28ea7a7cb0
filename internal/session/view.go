package session

import (
	"fmt"

	"github.com/Fuzzydust/bb-CBA/internal/engine"
	"github.com/Fuzzydust/bb-CBA/internal/store"
)

// View is the read model one client renders from: the battle row, both
// participants with their cards, and the human-readable action log
// rebuilt newest-first from the turn rows.
type View struct {
	Battle       BattleView        `json:"battle"`
	Participants []ParticipantView `json:"participants"`
	ActionLog    []string          `json:"action_log"`
	// Failed marks an invariant violation (wrong participant count, turn
	// referencing an unknown participant). The battle is unplayable and
	// the UI should only offer a way back to the menu.
	Failed bool `json:"failed,omitempty"`
}

type BattleView struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CurrentTurn string `json:"current_turn,omitempty"`
	WinnerID    string `json:"winner_id,omitempty"`
}

type CardView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	HP             int    `json:"hp"`
	Attack         int    `json:"attack"`
	Defense        int    `json:"defense"`
	Speed          int    `json:"speed"`
	CardType       string `json:"card_type"`
	CardSubtype    string `json:"card_subtype,omitempty"`
	SpecialAbility string `json:"special_ability"`
	AbilityType    string `json:"ability_type"`
	AbilityPower   int    `json:"ability_power"`
}

type ParticipantView struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	CurrentHP      int      `json:"current_hp"`
	Position       int      `json:"position"`
	HasUsedAbility bool     `json:"has_used_ability"`
	IsDefending    bool     `json:"is_defending"`
	Card           CardView `json:"card"`
}

func cardView(c store.Card) CardView {
	return CardView{
		ID:             c.ID,
		Name:           c.Name,
		HP:             c.HP,
		Attack:         c.Attack,
		Defense:        c.Defense,
		Speed:          c.Speed,
		CardType:       c.CardType,
		CardSubtype:    c.CardSubtype,
		SpecialAbility: c.SpecialAbility,
		AbilityType:    c.AbilityType,
		AbilityPower:   c.AbilityPower,
	}
}

func participantView(p store.Participant, c store.Card) ParticipantView {
	return ParticipantView{
		ID:             p.ID,
		UserID:         p.UserID,
		CurrentHP:      p.CurrentHP,
		Position:       p.Position,
		HasUsedAbility: p.HasUsedAbility,
		IsDefending:    p.IsDefending,
		Card:           cardView(c),
	}
}

func (v ParticipantView) combatant() engine.Combatant {
	return engine.Combatant{
		ID:     v.ID,
		UserID: v.UserID,
		Card: engine.Card{
			ID:           v.Card.ID,
			Name:         v.Card.Name,
			HP:           v.Card.HP,
			Attack:       v.Card.Attack,
			Defense:      v.Card.Defense,
			Speed:        v.Card.Speed,
			CardType:     engine.CardType(v.Card.CardType),
			AbilityType:  engine.AbilityType(v.Card.AbilityType),
			AbilityPower: v.Card.AbilityPower,
		},
		CurrentHP:      v.CurrentHP,
		Position:       v.Position,
		HasUsedAbility: v.HasUsedAbility,
		IsDefending:    v.IsDefending,
	}
}

// logLine renders one turn row the way the battle log displays it.
func logLine(action engine.ActionType, cardName, abilityName string, damage int) string {
	switch action {
	case engine.ActionAttack:
		return fmt.Sprintf("%s attacks for %d damage!", cardName, damage)
	case engine.ActionAbility:
		return fmt.Sprintf("%s uses %s for %d damage!", cardName, abilityName, damage)
	case engine.ActionDefend:
		return fmt.Sprintf("%s takes a defensive stance!", cardName)
	}
	return ""
}
