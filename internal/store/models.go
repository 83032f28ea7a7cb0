package store

import (
	"time"

	"github.com/Fuzzydust/bb-CBA/internal/engine"
)

// Card is a user-authored character card. Read-only during battle.
type Card struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	UserID         string `gorm:"index;not null"`
	Name           string `gorm:"not null"`
	ImageURL       string
	HP             int    `gorm:"not null"`
	Attack         int    `gorm:"not null"`
	Defense        int    `gorm:"not null"`
	Speed          int    `gorm:"not null"`
	CardType       string `gorm:"type:varchar(16);not null"`
	CardSubtype    string
	SpecialAbility string
	AbilityType    string `gorm:"type:varchar(16)"`
	AbilityPower   int
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Card) TableName() string { return "cards" }

func (c Card) Engine() engine.Card {
	return engine.Card{
		ID:             c.ID,
		Name:           c.Name,
		HP:             c.HP,
		Attack:         c.Attack,
		Defense:        c.Defense,
		Speed:          c.Speed,
		CardType:       engine.CardType(c.CardType),
		CardSubtype:    c.CardSubtype,
		SpecialAbility: c.SpecialAbility,
		AbilityType:    engine.AbilityType(c.AbilityType),
		AbilityPower:   c.AbilityPower,
	}
}

// Battle is one match session. Status only moves forward:
// waiting -> active -> completed.
type Battle struct {
	ID           string  `gorm:"primaryKey;type:uuid"`
	Status       string  `gorm:"type:varchar(16);not null;index"`
	CurrentTurn  *string `gorm:"type:uuid"`
	WinnerID     *string `gorm:"type:uuid"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	CompletedAt  *time.Time
	Participants []Participant `gorm:"foreignKey:BattleID"`
}

func (Battle) TableName() string { return "battles" }

func (b Battle) State() engine.BattleState {
	s := engine.BattleState{ID: b.ID, Status: engine.Status(b.Status)}
	if b.CurrentTurn != nil {
		s.CurrentTurn = *b.CurrentTurn
	}
	if b.WinnerID != nil {
		s.WinnerID = *b.WinnerID
	}
	return s
}

// Participant is one user's committed card within a battle. The
// (battle_id, position) uniqueness is what makes claiming a slot an
// atomic conditional insert rather than a check-then-act pair.
type Participant struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	BattleID       string `gorm:"type:uuid;not null;uniqueIndex:idx_participant_slot"`
	UserID         string `gorm:"type:uuid;not null"`
	CardID         string `gorm:"type:uuid;not null"`
	CurrentHP      int    `gorm:"not null"`
	Position       int    `gorm:"not null;uniqueIndex:idx_participant_slot"`
	HasUsedAbility bool   `gorm:"not null;default:false"`
	IsDefending    bool   `gorm:"not null;default:false"`
}

func (Participant) TableName() string { return "battle_participants" }

func (p Participant) Combatant(card Card) engine.Combatant {
	return engine.Combatant{
		ID:             p.ID,
		UserID:         p.UserID,
		Card:           card.Engine(),
		CurrentHP:      p.CurrentHP,
		Position:       p.Position,
		HasUsedAbility: p.HasUsedAbility,
		IsDefending:    p.IsDefending,
	}
}

// Turn is one committed action. Rows are append-only: they are never
// mutated or deleted and are the replayable history of the battle.
type Turn struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	BattleID      string `gorm:"type:uuid;not null;index"`
	ParticipantID string `gorm:"type:uuid;not null"`
	ActionType    string `gorm:"type:varchar(16);not null"`
	DamageDealt   int    `gorm:"not null"`
	TurnNumber    int    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (Turn) TableName() string { return "battle_turns" }
