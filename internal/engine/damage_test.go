package engine

import "testing"

func combatant(card Card, defending bool) Combatant {
	return Combatant{ID: "p", UserID: "u", Card: card, CurrentHP: card.HP, IsDefending: defending}
}

func TestResolveDamage(t *testing.T) {
	fire := Card{Name: "Salamander", HP: 300, Attack: 60, Defense: 20, Speed: 50, CardType: TypeFire, AbilityPower: 70}
	electric := Card{Name: "Volt", HP: 500, Attack: 40, Defense: 10, Speed: 30, CardType: TypeElectric}
	steel := Card{Name: "Anvil", HP: 200, Attack: 10, Defense: 90, Speed: 5, CardType: TypeSteel}

	cases := []struct {
		name       string
		attacker   Card
		defender   Card
		defending  bool
		action     ActionType
		wantDamage int
	}{
		{
			// base 60, advantage -> 90, minus defense 10
			name:       "attack with type advantage",
			attacker:   fire,
			defender:   electric,
			action:     ActionAttack,
			wantDamage: 80,
		},
		{
			// base 40, no advantage, minus defense 20
			name:       "attack without advantage",
			attacker:   electric,
			defender:   fire,
			action:     ActionAttack,
			wantDamage: 20,
		},
		{
			// 90 - 10 = 80, halved by defend posture
			name:       "defend halves damage",
			attacker:   fire,
			defender:   electric,
			defending:  true,
			action:     ActionAttack,
			wantDamage: 40,
		},
		{
			// ability power 70, advantage -> 105, half of defense 10 = 5
			name:       "ability bypasses half defense",
			attacker:   fire,
			defender:   electric,
			action:     ActionAbility,
			wantDamage: 100,
		},
		{
			// 10 - 90 floors at 1
			name:       "mitigated damage floors at one",
			attacker:   steel,
			defender:   fire,
			action:     ActionAttack,
			wantDamage: 1,
		},
		{
			// floored 1, halved by defend -> fully blocked
			name:       "defend can fully block a floored hit",
			attacker:   steel,
			defender:   fire,
			defending:  true,
			action:     ActionAttack,
			wantDamage: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(combatant(tc.attacker, false), combatant(tc.defender, tc.defending), tc.action)
			if got != tc.wantDamage {
				t.Fatalf("Resolve() = %d, want %d", got, tc.wantDamage)
			}
		})
	}
}

func TestResolveNeverNegative(t *testing.T) {
	types := []CardType{TypeFire, TypeWater, TypeStone, TypeElectric, TypeIce, TypeSteel, TypePixie}
	for _, at := range types {
		for _, dt := range types {
			for _, defending := range []bool{false, true} {
				attacker := combatant(Card{Attack: 5, AbilityPower: 3, CardType: at}, false)
				defender := combatant(Card{Defense: 200, CardType: dt}, defending)
				for _, action := range []ActionType{ActionAttack, ActionAbility} {
					got := Resolve(attacker, defender, action)
					if got < 0 {
						t.Fatalf("Resolve(%s vs %s, %s, defending=%v) = %d, want >= 0", at, dt, action, defending, got)
					}
					if !defending && got < 1 {
						t.Fatalf("Resolve(%s vs %s, %s) = %d, want >= 1 before defend halving", at, dt, action, got)
					}
				}
			}
		}
	}
}

func TestUntypedCardsGetNoAdvantage(t *testing.T) {
	if HasAdvantage(Card{}, Card{}) {
		t.Fatalf("two blank types must not match as an advantage")
	}

	// base 60 minus defense 10, no spurious 1.5x
	attacker := combatant(Card{Attack: 60}, false)
	defender := combatant(Card{Defense: 10}, false)
	if got := Resolve(attacker, defender, ActionAttack); got != 50 {
		t.Fatalf("Resolve() = %d, want 50 without a type bonus", got)
	}
}

func TestTypeAdvantageIsAsymmetric(t *testing.T) {
	for attacker, target := range TypeAdvantages {
		if TypeAdvantages[target] == attacker {
			t.Fatalf("types %s and %s are advantaged both ways", attacker, target)
		}
	}
}
