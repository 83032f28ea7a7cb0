package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process store with the same conditional-write contract
// as the Postgres one. It backs tests and DB-less development runs.
type Memory struct {
	mu           sync.Mutex
	cards        map[string]Card
	battles      map[string]Battle
	participants map[string]Participant
	turns        map[string][]Turn
	notify       *notifier
}

func NewMemory() *Memory {
	return &Memory{
		cards:        make(map[string]Card),
		battles:      make(map[string]Battle),
		participants: make(map[string]Participant),
		turns:        make(map[string][]Turn),
		notify:       newNotifier(),
	}
}

func (m *Memory) CreateCard(ctx context.Context, c *Card) error {
	if !validCard(c) {
		return ErrInvalidCard
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.cards[c.ID] = *c
	return nil
}

func (m *Memory) Card(ctx context.Context, id string) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) CreateBattle(ctx context.Context, b *Battle) error {
	m.mu.Lock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	stored := *b
	stored.Participants = nil
	m.battles[b.ID] = stored
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battles", Event: EventInsert, BattleID: b.ID})
	return nil
}

func (m *Memory) Battle(ctx context.Context, id string) (*Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) WaitingBattles(ctx context.Context, limit int) ([]Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Battle
	for _, b := range m.battles {
		if b.Status == "waiting" {
			b.Participants = m.participantsLocked(b.ID)
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ActivateIfWaiting(ctx context.Context, battleID, firstTurn string) (bool, error) {
	m.mu.Lock()
	b, ok := m.battles[battleID]
	if !ok || b.Status != "waiting" {
		m.mu.Unlock()
		return false, nil
	}
	turn := firstTurn
	b.Status = "active"
	b.CurrentTurn = &turn
	m.battles[battleID] = b
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battles", Event: EventUpdate, BattleID: battleID})
	return true, nil
}

func (m *Memory) DeleteIfWaiting(ctx context.Context, battleID string) (bool, error) {
	m.mu.Lock()
	b, ok := m.battles[battleID]
	if !ok || b.Status != "waiting" {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.battles, battleID)
	for id, p := range m.participants {
		if p.BattleID == battleID {
			delete(m.participants, id)
		}
	}
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battles", Event: EventDelete, BattleID: battleID})
	return true, nil
}

func (m *Memory) SetTurn(ctx context.Context, battleID, participantID string) error {
	m.mu.Lock()
	b, ok := m.battles[battleID]
	if ok && b.Status == "active" {
		turn := participantID
		b.CurrentTurn = &turn
		m.battles[battleID] = b
	}
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battles", Event: EventUpdate, BattleID: battleID})
	return nil
}

func (m *Memory) CompleteBattle(ctx context.Context, battleID, winnerUserID string) error {
	m.mu.Lock()
	b, ok := m.battles[battleID]
	if ok && b.Status == "active" {
		now := time.Now().UTC()
		winner := winnerUserID
		b.Status = "completed"
		b.WinnerID = &winner
		b.CompletedAt = &now
		m.battles[battleID] = b
	}
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battles", Event: EventUpdate, BattleID: battleID})
	return nil
}

func (m *Memory) AddParticipant(ctx context.Context, p *Participant) error {
	m.mu.Lock()
	for _, other := range m.participants {
		if other.BattleID == p.BattleID && other.Position == p.Position {
			m.mu.Unlock()
			return ErrSlotTaken
		}
	}
	m.participants[p.ID] = *p
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battle_participants", Event: EventInsert, BattleID: p.BattleID})
	return nil
}

func (m *Memory) Participants(ctx context.Context, battleID string) ([]Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participantsLocked(battleID), nil
}

func (m *Memory) participantsLocked(battleID string) []Participant {
	var out []Participant
	for _, p := range m.participants {
		if p.BattleID == battleID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *Memory) PatchParticipant(ctx context.Context, id string, patch ParticipantPatch) error {
	m.mu.Lock()
	p, ok := m.participants[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if patch.CurrentHP != nil {
		p.CurrentHP = *patch.CurrentHP
	}
	if patch.IsDefending != nil {
		p.IsDefending = *patch.IsDefending
	}
	if patch.HasUsedAbility != nil {
		p.HasUsedAbility = *patch.HasUsedAbility
	}
	m.participants[id] = p
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battle_participants", Event: EventUpdate, BattleID: p.BattleID})
	return nil
}

func (m *Memory) DeleteParticipant(ctx context.Context, id string) error {
	m.mu.Lock()
	p, ok := m.participants[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.participants, id)
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battle_participants", Event: EventDelete, BattleID: p.BattleID})
	return nil
}

func (m *Memory) AppendTurn(ctx context.Context, t *Turn) error {
	m.mu.Lock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.turns[t.BattleID] = append(m.turns[t.BattleID], *t)
	m.mu.Unlock()

	m.notify.publish(Change{Table: "battle_turns", Event: EventInsert, BattleID: t.BattleID})
	return nil
}

func (m *Memory) Turns(ctx context.Context, battleID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns[battleID]))
	copy(out, m.turns[battleID])
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber > out[j].TurnNumber })
	return out, nil
}

func (m *Memory) LastTurnNumber(ctx context.Context, battleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := 0
	for _, t := range m.turns[battleID] {
		if t.TurnNumber > last {
			last = t.TurnNumber
		}
	}
	return last, nil
}

func (m *Memory) Watch(battleID string) (<-chan Change, func()) {
	return m.notify.subscribe(battleID)
}
