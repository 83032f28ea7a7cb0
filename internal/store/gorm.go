package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the Postgres-backed store. The slot uniqueness lives in the
// schema (idx_participant_slot), so a lost join race surfaces as a
// duplicate-key error instead of a silently corrupted battle. Change
// notifications cover writes issued through this process; cross-process
// writes are picked up by the consumers' reconciliation polls.
type DB struct {
	db     *gorm.DB
	log    *zap.Logger
	notify *notifier
}

// Open connects to Postgres and migrates the battle tables.
func Open(dsn string, log *zap.Logger) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Card{}, &Battle{}, &Participant{}, &Turn{}); err != nil {
		return nil, err
	}
	log.Info("postgres store ready")
	return &DB{db: db, log: log, notify: newNotifier()}, nil
}

func validCard(c *Card) bool {
	return c.HP >= 0 && c.Attack >= 0 && c.Defense >= 0 && c.Speed >= 0 && c.AbilityPower >= 0
}

func (g *DB) CreateCard(ctx context.Context, c *Card) error {
	if !validCard(c) {
		return ErrInvalidCard
	}
	return g.db.WithContext(ctx).Create(c).Error
}

func (g *DB) Card(ctx context.Context, id string) (*Card, error) {
	var c Card
	if err := g.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (g *DB) CreateBattle(ctx context.Context, b *Battle) error {
	if err := g.db.WithContext(ctx).Create(b).Error; err != nil {
		return err
	}
	g.notify.publish(Change{Table: "battles", Event: EventInsert, BattleID: b.ID})
	return nil
}

func (g *DB) Battle(ctx context.Context, id string) (*Battle, error) {
	var b Battle
	if err := g.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (g *DB) WaitingBattles(ctx context.Context, limit int) ([]Battle, error) {
	var battles []Battle
	err := g.db.WithContext(ctx).
		Preload("Participants").
		Where("status = ?", "waiting").
		Order("created_at ASC").
		Limit(limit).
		Find(&battles).Error
	return battles, err
}

func (g *DB) ActivateIfWaiting(ctx context.Context, battleID, firstTurn string) (bool, error) {
	res := g.db.WithContext(ctx).
		Model(&Battle{}).
		Where("id = ? AND status = ?", battleID, "waiting").
		Updates(map[string]any{"status": "active", "current_turn": firstTurn})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	g.notify.publish(Change{Table: "battles", Event: EventUpdate, BattleID: battleID})
	return true, nil
}

func (g *DB) DeleteIfWaiting(ctx context.Context, battleID string) (bool, error) {
	var affected int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", battleID, "waiting").Delete(&Battle{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			// A joiner got there first; leave the active battle alone.
			return nil
		}
		return tx.Where("battle_id = ?", battleID).Delete(&Participant{}).Error
	})
	if err != nil {
		return false, err
	}
	if affected > 0 {
		g.notify.publish(Change{Table: "battles", Event: EventDelete, BattleID: battleID})
	}
	return affected > 0, nil
}

func (g *DB) SetTurn(ctx context.Context, battleID, participantID string) error {
	res := g.db.WithContext(ctx).
		Model(&Battle{}).
		Where("id = ? AND status = ?", battleID, "active").
		Update("current_turn", participantID)
	if res.Error != nil {
		return res.Error
	}
	g.notify.publish(Change{Table: "battles", Event: EventUpdate, BattleID: battleID})
	return nil
}

func (g *DB) CompleteBattle(ctx context.Context, battleID, winnerUserID string) error {
	now := time.Now().UTC()
	res := g.db.WithContext(ctx).
		Model(&Battle{}).
		Where("id = ? AND status = ?", battleID, "active").
		Updates(map[string]any{
			"status":       "completed",
			"winner_id":    winnerUserID,
			"completed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	g.notify.publish(Change{Table: "battles", Event: EventUpdate, BattleID: battleID})
	return nil
}

func (g *DB) AddParticipant(ctx context.Context, p *Participant) error {
	if err := g.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSlotTaken
		}
		return err
	}
	g.notify.publish(Change{Table: "battle_participants", Event: EventInsert, BattleID: p.BattleID})
	return nil
}

func (g *DB) Participants(ctx context.Context, battleID string) ([]Participant, error) {
	var ps []Participant
	err := g.db.WithContext(ctx).
		Where("battle_id = ?", battleID).
		Order("position ASC").
		Find(&ps).Error
	return ps, err
}

func (g *DB) PatchParticipant(ctx context.Context, id string, patch ParticipantPatch) error {
	fields := map[string]any{}
	if patch.CurrentHP != nil {
		fields["current_hp"] = *patch.CurrentHP
	}
	if patch.IsDefending != nil {
		fields["is_defending"] = *patch.IsDefending
	}
	if patch.HasUsedAbility != nil {
		fields["has_used_ability"] = *patch.HasUsedAbility
	}
	if len(fields) == 0 {
		return nil
	}

	var p Participant
	if err := g.db.WithContext(ctx).Select("id", "battle_id").First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := g.db.WithContext(ctx).Model(&Participant{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return err
	}
	g.notify.publish(Change{Table: "battle_participants", Event: EventUpdate, BattleID: p.BattleID})
	return nil
}

func (g *DB) DeleteParticipant(ctx context.Context, id string) error {
	var p Participant
	if err := g.db.WithContext(ctx).Select("id", "battle_id").First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := g.db.WithContext(ctx).Delete(&Participant{}, "id = ?", id).Error; err != nil {
		return err
	}
	g.notify.publish(Change{Table: "battle_participants", Event: EventDelete, BattleID: p.BattleID})
	return nil
}

func (g *DB) AppendTurn(ctx context.Context, t *Turn) error {
	if err := g.db.WithContext(ctx).Create(t).Error; err != nil {
		return err
	}
	g.notify.publish(Change{Table: "battle_turns", Event: EventInsert, BattleID: t.BattleID})
	return nil
}

func (g *DB) Turns(ctx context.Context, battleID string) ([]Turn, error) {
	var turns []Turn
	err := g.db.WithContext(ctx).
		Where("battle_id = ?", battleID).
		Order("turn_number DESC").
		Find(&turns).Error
	return turns, err
}

func (g *DB) LastTurnNumber(ctx context.Context, battleID string) (int, error) {
	var n int
	err := g.db.WithContext(ctx).
		Model(&Turn{}).
		Where("battle_id = ?", battleID).
		Select("COALESCE(MAX(turn_number), 0)").
		Scan(&n).Error
	return n, err
}

func (g *DB) Watch(battleID string) (<-chan Change, func()) {
	return g.notify.subscribe(battleID)
}
