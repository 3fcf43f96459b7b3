package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

// Store implements queue.Store on gorm.
type Store struct {
	DB *gorm.DB
}

var _ queue.Store = (*Store)(nil)

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) CreateQueue(ctx context.Context, rec queue.Record) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Queue{}).Where("handle = ?", rec.Handle).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return queue.ErrExists
	}
	row := toQueueRow(rec)
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return queue.ErrExists
		}
		return err
	}
	return nil
}

func (s *Store) GetQueue(ctx context.Context, handle string) (queue.Record, error) {
	var row Queue
	res := s.DB.WithContext(ctx).Where("handle = ?", handle).Limit(1).Find(&row)
	if res.Error != nil {
		return queue.Record{}, res.Error
	}
	if res.RowsAffected == 0 {
		return queue.Record{}, queue.ErrNotFound
	}
	return row.record(), nil
}

// GetOpenQueueByType returns the most recently created open queue of the type.
func (s *Store) GetOpenQueueByType(ctx context.Context, guildID string, typ queue.TypeID) (queue.Record, error) {
	var row Queue
	res := s.DB.WithContext(ctx).
		Where("guild_id = ? AND type = ? AND status = ?", guildID, string(typ), string(queue.StatusOpen)).
		Order("created_at DESC").
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return queue.Record{}, res.Error
	}
	if res.RowsAffected == 0 {
		return queue.Record{}, queue.ErrNotFound
	}
	return row.record(), nil
}

func (s *Store) ListGuildQueues(ctx context.Context, guildID string) ([]queue.Record, error) {
	return s.list(s.DB.WithContext(ctx).Where("guild_id = ?", guildID))
}

func (s *Store) ListQueues(ctx context.Context) ([]queue.Record, error) {
	return s.list(s.DB.WithContext(ctx))
}

func (s *Store) ListOpenQueues(ctx context.Context) ([]queue.Record, error) {
	return s.list(s.DB.WithContext(ctx).Where("status = ?", string(queue.StatusOpen)))
}

func (s *Store) list(q *gorm.DB) ([]queue.Record, error) {
	var rows []Queue
	if err := q.Order("created_at ASC, handle ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]queue.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (s *Store) CloseQueue(ctx context.Context, handle string) error {
	res := s.DB.WithContext(ctx).Model(&Queue{}).
		Where("handle = ?", handle).
		Update("status", string(queue.StatusClosed))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// mysql reports zero affected rows when nothing changed
		return s.mustExist(ctx, handle)
	}
	return nil
}

func (s *Store) ReopenQueue(ctx context.Context, handle string, expiresAt time.Time) error {
	res := s.DB.WithContext(ctx).Model(&Queue{}).
		Where("handle = ?", handle).
		Updates(map[string]any{"status": string(queue.StatusOpen), "expires_at": expiresAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.mustExist(ctx, handle)
	}
	return nil
}

func (s *Store) DeleteQueue(ctx context.Context, handle string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("queue_handle = ?", handle).Delete(&ActivePlayer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("queue_handle = ?", handle).Delete(&Member{}).Error; err != nil {
			return err
		}
		res := tx.Where("handle = ?", handle).Delete(&Queue{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return queue.ErrNotFound
		}
		return nil
	})
}

// Join runs the admission decision inside one transaction holding the
// queue row lock, so capacity is checked against committed state.
func (s *Store) Join(ctx context.Context, req queue.JoinRequest) (queue.JoinResult, error) {
	var result queue.JoinResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q Queue
		res := s.forUpdate(tx).Where("handle = ?", req.Handle).Limit(1).Find(&q)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return queue.ErrNotFound
		}
		result.Capacity = q.Capacity
		if q.Status == string(queue.StatusClosed) {
			return queue.ErrQueueClosed
		}

		var existing Member
		res = tx.Where("queue_handle = ? AND player_id = ?", req.Handle, req.PlayerID).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			// delete and re-insert so the member moves to the end
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Create(memberRow(req)).Error; err != nil {
				return err
			}
			result.Outcome = queue.Switched
			return countInto(tx, req.Handle, &result.Count)
		}

		if err := countInto(tx, req.Handle, &result.Count); err != nil {
			return err
		}
		if result.Count >= q.Capacity {
			return queue.ErrQueueFull
		}

		if err := claim(tx, q.GuildID, req.PlayerID, req.Handle); err != nil {
			return err
		}
		if err := tx.Create(memberRow(req)).Error; err != nil {
			return err
		}
		result.Outcome = queue.Joined
		result.Count++
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent join for the same player won the race
			return result, queue.ErrPlayerInAnotherQueue
		}
		return result, err
	}
	return result, nil
}

// claim records that the player is active in handle. A claim on another
// open queue rejects the join; a claim on a closed or deleted queue is
// taken over with a compare-and-set update.
func claim(tx *gorm.DB, guildID, playerID, handle string) error {
	var cur ActivePlayer
	res := tx.Where("guild_id = ? AND player_id = ?", guildID, playerID).Limit(1).Find(&cur)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tx.Create(&ActivePlayer{GuildID: guildID, PlayerID: playerID, QueueHandle: handle}).Error
	}
	if cur.QueueHandle == handle {
		return nil
	}

	var open int64
	if err := tx.Model(&Queue{}).
		Where("handle = ? AND status = ?", cur.QueueHandle, string(queue.StatusOpen)).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return queue.ErrPlayerInAnotherQueue
	}

	upd := tx.Model(&ActivePlayer{}).
		Where("guild_id = ? AND player_id = ? AND queue_handle = ?", guildID, playerID, cur.QueueHandle).
		Update("queue_handle", handle)
	if upd.Error != nil {
		return upd.Error
	}
	if upd.RowsAffected == 0 {
		return queue.ErrPlayerInAnotherQueue
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, handle, playerID string) (bool, error) {
	var removed bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("queue_handle = ? AND player_id = ?", handle, playerID).Delete(&Member{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Where("player_id = ? AND queue_handle = ?", playerID, handle).Delete(&ActivePlayer{}).Error
	})
	return removed, err
}

func (s *Store) ClearMembers(ctx context.Context, handle string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("queue_handle = ?", handle).Delete(&ActivePlayer{}).Error; err != nil {
			return err
		}
		return tx.Where("queue_handle = ?", handle).Delete(&Member{}).Error
	})
}

func (s *Store) Members(ctx context.Context, handle string) ([]queue.Membership, error) {
	var rows []Member
	if err := s.DB.WithContext(ctx).
		Where("queue_handle = ?", handle).
		Order("joined_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]queue.Membership, 0, len(rows))
	for _, r := range rows {
		out = append(out, queue.Membership{
			Handle:      r.QueueHandle,
			PlayerID:    r.PlayerID,
			DisplayName: r.DisplayName,
			Role:        queue.Role(r.Role),
			JoinedAt:    r.JoinedAt,
		})
	}
	return out, nil
}

func (s *Store) CountMembers(ctx context.Context, handle string) (int, error) {
	var n int
	err := countInto(s.DB.WithContext(ctx), handle, &n)
	return n, err
}

func (s *Store) HasMember(ctx context.Context, handle, playerID string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&Member{}).
		Where("queue_handle = ? AND player_id = ?", handle, playerID).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) PlayerOpenQueue(ctx context.Context, guildID, playerID, exclude string) (string, error) {
	var handles []string
	err := s.DB.WithContext(ctx).
		Table("queue_active_players AS a").
		Joins("JOIN queues q ON q.handle = a.queue_handle").
		Where("a.guild_id = ? AND a.player_id = ? AND q.status = ? AND a.queue_handle <> ?",
			guildID, playerID, string(queue.StatusOpen), exclude).
		Limit(1).
		Pluck("a.queue_handle", &handles).Error
	if err != nil || len(handles) == 0 {
		return "", err
	}
	return handles[0], nil
}

func (s *Store) mustExist(ctx context.Context, handle string) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Queue{}).Where("handle = ?", handle).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return queue.ErrNotFound
	}
	return nil
}

// forUpdate adds SELECT ... FOR UPDATE where the dialect supports it.
// sqlite serializes through its single connection instead.
func (s *Store) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.DB.Dialector.Name() == DriverMySQL {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func countInto(tx *gorm.DB, handle string, n *int) error {
	var c int64
	if err := tx.Model(&Member{}).Where("queue_handle = ?", handle).Count(&c).Error; err != nil {
		return fmt.Errorf("count members: %w", err)
	}
	*n = int(c)
	return nil
}

func memberRow(req queue.JoinRequest) *Member {
	return &Member{
		QueueHandle: req.Handle,
		PlayerID:    req.PlayerID,
		DisplayName: req.DisplayName,
		Role:        string(req.Role),
		JoinedAt:    req.JoinedAt,
	}
}

func toQueueRow(rec queue.Record) Queue {
	status := rec.Status
	if status == "" {
		status = queue.StatusOpen
	}
	return Queue{
		Handle:    rec.Handle,
		GuildID:   rec.GuildID,
		ChannelID: rec.ChannelID,
		Type:      string(rec.Type),
		Capacity:  rec.Capacity,
		Status:    string(status),
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}
}

func (q Queue) record() queue.Record {
	return queue.Record{
		Handle:    q.Handle,
		GuildID:   q.GuildID,
		ChannelID: q.ChannelID,
		Type:      queue.TypeID(q.Type),
		Capacity:  q.Capacity,
		Status:    queue.Status(q.Status),
		ExpiresAt: q.ExpiresAt,
		CreatedAt: q.CreatedAt,
	}
}
