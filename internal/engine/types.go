package engine

type CardType string

const (
	TypeFire     CardType = "Fire"
	TypeWater    CardType = "Water"
	TypeStone    CardType = "Stone"
	TypeElectric CardType = "Electric"
	TypeIce      CardType = "ICE"
	TypeSteel    CardType = "Steel"
	TypePixie    CardType = "Pixie"
)

// TypeAdvantages maps each type to the one type it is strong against.
// Types missing from the map have no advantage. The table is asymmetric:
// no pair is ever advantaged both ways.
var TypeAdvantages = map[CardType]CardType{
	TypeFire:  TypeElectric,
	TypeWater: TypeIce,
	TypeStone: TypeSteel,
}

type AbilityType string

const (
	AbilityAttack  AbilityType = "attack"
	AbilityDefense AbilityType = "defense"
	AbilityHeal    AbilityType = "heal"
	AbilityDebuff  AbilityType = "debuff"
)

type ActionType string

const (
	ActionAttack  ActionType = "attack"
	ActionAbility ActionType = "ability"
	ActionDefend  ActionType = "defend"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// MaxStatPoints caps attack+defense+speed for user-authored cards.
// The authoring flow enforces it; the battle engine only documents it.
const MaxStatPoints = 200

// Card holds the stats a combatant fights with. Immutable during battle.
type Card struct {
	ID             string
	Name           string
	HP             int
	Attack         int
	Defense        int
	Speed          int
	CardType       CardType
	CardSubtype    string
	SpecialAbility string
	AbilityType    AbilityType
	AbilityPower   int
}

// Combatant is one participant's battle-local snapshot plus its card.
type Combatant struct {
	ID             string
	UserID         string
	Card           Card
	CurrentHP      int
	Position       int
	HasUsedAbility bool
	IsDefending    bool
}

// BattleState is the authoritative battle row as last observed.
// CurrentTurn is empty only while the battle is still waiting.
type BattleState struct {
	ID          string
	Status      Status
	CurrentTurn string
	WinnerID    string
}
