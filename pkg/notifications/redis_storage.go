package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements Storage on Redis for installs that already run
// Redis and want to keep the notification state out of the relational
// database. Record writes through a MULTI/EXEC pipeline so the notification
// hash, its recipient hashes and the feed index become visible together, and
// status transitions run inside Lua scripts so the unread guard and the
// write are a single atomic step per row.
type RedisStorage struct {
	client redis.UniversalClient
}

// NewRedisStorage creates a Redis-backed notification store on an existing
// client.
func NewRedisStorage(client redis.UniversalClient) *RedisStorage {
	return &RedisStorage{client: client}
}

const redisKeyPrefix = "notifications:"

func redisNotificationKey(id int64) string {
	return fmt.Sprintf("%snotification:%d", redisKeyPrefix, id)
}

func redisRecipientKey(id int64) string {
	return fmt.Sprintf("%srecipient:%d", redisKeyPrefix, id)
}

func redisFeedKey(ns Namespace, targetID int64) string {
	return fmt.Sprintf("%sfeed:%s:%d", redisKeyPrefix, ns, targetID)
}

const (
	redisSeqNotificationKey = redisKeyPrefix + "seq:notification"
	redisSeqRecipientKey    = redisKeyPrefix + "seq:recipient"
)

// markReadScript transitions every still-unread key in one atomic batch and
// returns the number of rows actually flipped.
var markReadScript = redis.NewScript(`
local changed = 0
for _, key in ipairs(KEYS) do
	if redis.call('HGET', key, 'status') == 'unread' then
		redis.call('HSET', key, 'status', 'read', 'status_changed_at', ARGV[1])
		changed = changed + 1
	end
end
return changed
`)

// markStatusScript overwrites every existing key and returns the number of
// rows touched; missing keys are skipped.
var markStatusScript = redis.NewScript(`
local updated = 0
for _, key in ipairs(KEYS) do
	if redis.call('EXISTS', key) == 1 then
		redis.call('HSET', key, 'status', ARGV[1], 'status_changed_at', ARGV[2])
		updated = updated + 1
	end
end
return updated
`)

func (s *RedisStorage) Record(ctx context.Context, data map[string]any, targets []Target) (RecordResult, error) {
	targets = dedupeTargets(targets)
	if len(targets) == 0 {
		return RecordResult{}, errors.Join(ErrInvalidInput, errors.New("no recipients"))
	}

	notifID, err := s.client.Incr(ctx, redisSeqNotificationKey).Result()
	if err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}
	lastRecipientID, err := s.client.IncrBy(ctx, redisSeqRecipientKey, int64(len(targets))).Result()
	if err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}
	firstRecipientID := lastRecipientID - int64(len(targets)) + 1

	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return RecordResult{}, errors.Join(ErrInvalidInput, err)
	}
	createdAt := time.Now().UTC()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisNotificationKey(notifID),
		"data", payload,
		"created_at", createdAt.Format(time.RFC3339Nano),
	)
	recipientIDs := make([]int64, 0, len(targets))
	for i, t := range targets {
		rid := firstRecipientID + int64(i)
		pipe.HSet(ctx, redisRecipientKey(rid),
			"notification_id", notifID,
			"namespace", string(t.Namespace),
			"target_id", t.ID,
			"status", StatusUnread,
			"status_changed_at", "",
		)
		pipe.ZAdd(ctx, redisFeedKey(t.Namespace, t.ID), redis.Z{
			Score:  float64(createdAt.UnixNano()),
			Member: rid,
		})
		recipientIDs = append(recipientIDs, rid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}

	return RecordResult{NotificationID: notifID, RecipientIDs: recipientIDs}, nil
}

func (s *RedisStorage) Feed(ctx context.Context, ns Namespace, targetID int64, opts FeedOptions) ([]FeedItem, error) {
	opts = opts.normalize()

	items, err := s.loadFeedItems(ctx, ns, targetID)
	if err != nil {
		return nil, err
	}

	filtered := items[:0]
	for _, item := range items {
		if matchFeedItem(item, opts) {
			filtered = append(filtered, item)
		}
	}
	sortFeedItems(filtered, opts.Order)
	return paginate(filtered, opts.Limit, opts.Offset), nil
}

func (s *RedisStorage) MarkRead(ctx context.Context, ns Namespace, targetID int64, notificationIDs []int64, asOf time.Time) (int64, error) {
	asOf = resolveAsOf(asOf)

	recipientIDs, err := s.feedMembers(ctx, ns, targetID)
	if err != nil {
		return 0, err
	}
	if len(notificationIDs) > 0 {
		// A recipient's owning notification never changes, so the restriction
		// can be resolved ahead of the atomic status flip.
		recipientIDs, err = s.filterByNotification(ctx, recipientIDs, notificationIDs)
		if err != nil {
			return 0, err
		}
	}
	if len(recipientIDs) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		keys = append(keys, redisRecipientKey(rid))
	}
	n, err := markReadScript.Run(ctx, s.client, keys, asOf.Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	return n, nil
}

func (s *RedisStorage) MarkStatus(ctx context.Context, recipientIDs []int64, status string, asOf time.Time) (int64, error) {
	if status == "" || len(recipientIDs) == 0 {
		return 0, errors.Join(ErrInvalidInput, errors.New("empty status or recipient list"))
	}
	asOf = resolveAsOf(asOf)

	keys := make([]string, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		keys = append(keys, redisRecipientKey(rid))
	}
	n, err := markStatusScript.Run(ctx, s.client, keys, status, asOf.Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	return n, nil
}

func (s *RedisStorage) CountUnread(ctx context.Context, ns Namespace, targetID int64, opts CountOptions) (int, error) {
	items, err := s.loadFeedItems(ctx, ns, targetID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range items {
		if item.Status != StatusUnread {
			continue
		}
		if opts.Type != "" && item.Category() != opts.Type {
			continue
		}
		count++
	}
	return count, nil
}

func (s *RedisStorage) feedMembers(ctx context.Context, ns Namespace, targetID int64) ([]int64, error) {
	members, err := s.client.ZRange(ctx, redisFeedKey(ns, targetID), 0, -1).Result()
	if err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, errors.Join(ErrPersistenceFailure, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *RedisStorage) filterByNotification(ctx context.Context, recipientIDs, notificationIDs []int64) ([]int64, error) {
	want := make(map[int64]struct{}, len(notificationIDs))
	for _, id := range notificationIDs {
		want[id] = struct{}{}
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(recipientIDs))
	for i, rid := range recipientIDs {
		cmds[i] = pipe.HGet(ctx, redisRecipientKey(rid), "notification_id")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}

	var filtered []int64
	for i, cmd := range cmds {
		raw, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, errors.Join(ErrPersistenceFailure, err)
		}
		nid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Join(ErrPersistenceFailure, err)
		}
		if _, ok := want[nid]; ok {
			filtered = append(filtered, recipientIDs[i])
		}
	}
	return filtered, nil
}

// loadFeedItems materializes every recipient row for the target joined to
// its notification. Per-target feeds are small enough that filtering and
// sorting happen in process with the same helpers the memory backend uses.
func (s *RedisStorage) loadFeedItems(ctx context.Context, ns Namespace, targetID int64) ([]FeedItem, error) {
	recipientIDs, err := s.feedMembers(ctx, ns, targetID)
	if err != nil {
		return nil, err
	}
	if len(recipientIDs) == 0 {
		return []FeedItem{}, nil
	}

	pipe := s.client.Pipeline()
	recipientCmds := make([]*redis.MapStringStringCmd, len(recipientIDs))
	for i, rid := range recipientIDs {
		recipientCmds[i] = pipe.HGetAll(ctx, redisRecipientKey(rid))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}

	type pendingItem struct {
		item    FeedItem
		notifID int64
	}
	pending := make([]pendingItem, 0, len(recipientIDs))
	notifIDs := make(map[int64]struct{})
	for i, cmd := range recipientCmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		nid, err := strconv.ParseInt(fields["notification_id"], 10, 64)
		if err != nil {
			return nil, errors.Join(ErrPersistenceFailure, err)
		}
		item := FeedItem{
			NotificationID: nid,
			RecipientID:    recipientIDs[i],
			Status:         fields["status"],
		}
		if raw := fields["status_changed_at"]; raw != "" {
			ts, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, errors.Join(ErrPersistenceFailure, err)
			}
			item.StatusChangedAt = &ts
		}
		pending = append(pending, pendingItem{item: item, notifID: nid})
		notifIDs[nid] = struct{}{}
	}

	notifPipe := s.client.Pipeline()
	notifCmds := make(map[int64]*redis.MapStringStringCmd, len(notifIDs))
	for nid := range notifIDs {
		notifCmds[nid] = notifPipe.HGetAll(ctx, redisNotificationKey(nid))
	}
	if _, err := notifPipe.Exec(ctx); err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}

	notifs := make(map[int64]Notification, len(notifIDs))
	for nid, cmd := range notifCmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
		if err != nil {
			return nil, errors.Join(ErrPersistenceFailure, err)
		}
		var data map[string]any
		if raw := fields["data"]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				return nil, errors.Join(ErrPersistenceFailure, err)
			}
		}
		notifs[nid] = Notification{ID: nid, Data: data, CreatedAt: createdAt}
	}

	items := make([]FeedItem, 0, len(pending))
	for _, p := range pending {
		n, ok := notifs[p.notifID]
		if !ok {
			continue
		}
		p.item.Data = n.Data
		p.item.CreatedAt = n.CreatedAt
		items = append(items, p.item)
	}
	return items, nil
}
