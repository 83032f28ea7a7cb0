package engine

// HasAdvantage reports whether the attacker's type is strong against the
// defender's type. Cards outside the advantage table, blank types
// included, never get the bonus.
func HasAdvantage(attacker, defender Card) bool {
	target, ok := TypeAdvantages[attacker.CardType]
	return ok && target == defender.CardType
}

// Resolve computes the damage of a single attack or ability action.
// Pure function; ability metering and defend posture bookkeeping belong
// to the caller. Defend actions deal no damage and never reach here.
//
// Base power is the card's attack, or its ability power for an ability.
// A type advantage multiplies base power by 1.5, rounding down. Abilities
// bypass half the defender's defense. The mitigated result is floored at
// 1, then halved (rounding down) when the defender holds a defend
// posture, which can legitimately reach 0: fully blocked.
func Resolve(attacker, defender Combatant, action ActionType) int {
	base := attacker.Card.Attack
	if action == ActionAbility {
		base = attacker.Card.AbilityPower
	}

	if HasAdvantage(attacker.Card, defender.Card) {
		base = base * 3 / 2
	}

	mitigation := defender.Card.Defense
	if action == ActionAbility {
		mitigation = defender.Card.Defense / 2
	}

	damage := base - mitigation
	if damage < 1 {
		damage = 1
	}

	if defender.IsDefending {
		damage /= 2
	}
	return damage
}
