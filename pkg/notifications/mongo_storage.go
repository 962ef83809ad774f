package notifications

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage implements Storage on MongoDB. Each notification is one
// document embedding its recipient rows, so Record is a single InsertOne and
// fan-out atomicity comes from document-level atomicity rather than a
// multi-document transaction. Status writes target embedded rows with
// positional updates, keeping the unread guard inside the server-side match.
//
// Integer ids are allocated from a counters collection; one Record call
// reserves the whole recipient id block with a single $inc.
type MongoStorage struct {
	notifications *mongo.Collection
	counters      *mongo.Collection
}

type mongoRecipient struct {
	ID              int64      `bson:"id"`
	Namespace       string     `bson:"namespace"`
	TargetID        int64      `bson:"target_id"`
	Status          string     `bson:"status"`
	StatusChangedAt *time.Time `bson:"status_changed_at,omitempty"`
}

type mongoNotification struct {
	ID         int64            `bson:"_id"`
	Data       map[string]any   `bson:"data,omitempty"`
	CreatedAt  time.Time        `bson:"created_at"`
	Recipients []mongoRecipient `bson:"recipients"`
}

const (
	mongoNotificationsCollection = "notifications"
	mongoCountersCollection      = "notification_counters"

	counterNotifications = "notifications"
	counterRecipients    = "notification_recipients"
)

// NewMongoStorage creates a MongoDB-backed notification store on an existing
// database handle.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		notifications: db.Collection(mongoNotificationsCollection),
		counters:      db.Collection(mongoCountersCollection),
	}
}

// nextSeq reserves n consecutive ids from the named counter and returns the
// first of the block.
func (s *MongoStorage) nextSeq(ctx context.Context, name string, n int64) (int64, error) {
	res := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": n}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq - n + 1, nil
}

func (s *MongoStorage) Record(ctx context.Context, data map[string]any, targets []Target) (RecordResult, error) {
	targets = dedupeTargets(targets)
	if len(targets) == 0 {
		return RecordResult{}, errors.Join(ErrInvalidInput, errors.New("no recipients"))
	}

	notifID, err := s.nextSeq(ctx, counterNotifications, 1)
	if err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}
	firstRecipient, err := s.nextSeq(ctx, counterRecipients, int64(len(targets)))
	if err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}

	doc := mongoNotification{
		ID:         notifID,
		Data:       data,
		CreatedAt:  time.Now().UTC(),
		Recipients: make([]mongoRecipient, 0, len(targets)),
	}
	recipientIDs := make([]int64, 0, len(targets))
	for i, t := range targets {
		rid := firstRecipient + int64(i)
		doc.Recipients = append(doc.Recipients, mongoRecipient{
			ID:        rid,
			Namespace: string(t.Namespace),
			TargetID:  t.ID,
			Status:    StatusUnread,
		})
		recipientIDs = append(recipientIDs, rid)
	}

	if _, err := s.notifications.InsertOne(ctx, doc); err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}
	return RecordResult{NotificationID: notifID, RecipientIDs: recipientIDs}, nil
}

func (s *MongoStorage) Feed(ctx context.Context, ns Namespace, targetID int64, opts FeedOptions) ([]FeedItem, error) {
	opts = opts.normalize()

	match := bson.M{
		"recipients.namespace": string(ns),
		"recipients.target_id": targetID,
	}
	if opts.Status != "" {
		match["recipients.status"] = opts.Status
	}
	if opts.Type != "" {
		match["data.type"] = opts.Type
	}
	created := bson.M{}
	if opts.Since != nil {
		created["$gte"] = *opts.Since
	}
	if opts.Before != nil {
		created["$lt"] = *opts.Before
	}
	if len(created) > 0 {
		match["created_at"] = created
	}

	dir := -1
	if opts.Order == OrderOldestFirst {
		dir = 1
	}

	pipeline := mongo.Pipeline{
		// Pre-filter on the indexed target pair before unwinding.
		{{Key: "$match", Value: bson.M{
			"recipients": bson.M{"$elemMatch": bson.M{
				"namespace": string(ns),
				"target_id": targetID,
			}},
		}}},
		{{Key: "$unwind", Value: "$recipients"}},
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{
			{Key: "created_at", Value: dir},
			{Key: "_id", Value: dir},
		}}},
		{{Key: "$skip", Value: opts.Offset}},
		{{Key: "$limit", Value: opts.Limit}},
		{{Key: "$project", Value: bson.M{
			"_id":               0,
			"notification_id":   "$_id",
			"recipient_id":      "$recipients.id",
			"data":              "$data",
			"status":            "$recipients.status",
			"created_at":        "$created_at",
			"status_changed_at": "$recipients.status_changed_at",
		}}},
	}

	cur, err := s.notifications.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	defer cur.Close(ctx) //nolint:errcheck

	var rows []struct {
		NotificationID  int64          `bson:"notification_id"`
		RecipientID     int64          `bson:"recipient_id"`
		Data            map[string]any `bson:"data"`
		Status          string         `bson:"status"`
		CreatedAt       time.Time      `bson:"created_at"`
		StatusChangedAt *time.Time     `bson:"status_changed_at"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}

	items := make([]FeedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, FeedItem{
			NotificationID:  row.NotificationID,
			RecipientID:     row.RecipientID,
			Data:            row.Data,
			Status:          row.Status,
			CreatedAt:       row.CreatedAt,
			StatusChangedAt: row.StatusChangedAt,
		})
	}
	return items, nil
}

func (s *MongoStorage) MarkRead(ctx context.Context, ns Namespace, targetID int64, notificationIDs []int64, asOf time.Time) (int64, error) {
	asOf = resolveAsOf(asOf)

	// One recipient row per (namespace, target) exists in any document, so
	// the positional update touches exactly the guarded row and the modified
	// document count equals the transitioned row count.
	filter := bson.M{
		"recipients": bson.M{"$elemMatch": bson.M{
			"namespace": string(ns),
			"target_id": targetID,
			"status":    StatusUnread,
		}},
	}
	if len(notificationIDs) > 0 {
		filter["_id"] = bson.M{"$in": notificationIDs}
	}

	res, err := s.notifications.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"recipients.$.status":            StatusRead,
		"recipients.$.status_changed_at": asOf,
	}})
	if err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStorage) MarkStatus(ctx context.Context, recipientIDs []int64, status string, asOf time.Time) (int64, error) {
	if status == "" || len(recipientIDs) == 0 {
		return 0, errors.Join(ErrInvalidInput, errors.New("empty status or recipient list"))
	}
	asOf = resolveAsOf(asOf)

	// Per-row updates keep the row-granular write discipline and an exact
	// updated-row count; recipient ids are globally unique so each update
	// matches at most one document.
	var updated int64
	for _, rid := range recipientIDs {
		res, err := s.notifications.UpdateOne(ctx,
			bson.M{"recipients.id": rid},
			bson.M{"$set": bson.M{
				"recipients.$.status":            status,
				"recipients.$.status_changed_at": asOf,
			}},
		)
		if err != nil {
			return updated, errors.Join(ErrPersistenceFailure, err)
		}
		updated += res.MatchedCount
	}
	return updated, nil
}

func (s *MongoStorage) CountUnread(ctx context.Context, ns Namespace, targetID int64, opts CountOptions) (int, error) {
	match := bson.M{
		"recipients.namespace": string(ns),
		"recipients.target_id": targetID,
		"recipients.status":    StatusUnread,
	}
	if opts.Type != "" {
		match["data.type"] = opts.Type
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"recipients": bson.M{"$elemMatch": bson.M{
				"namespace": string(ns),
				"target_id": targetID,
				"status":    StatusUnread,
			}},
		}}},
		{{Key: "$unwind", Value: "$recipients"}},
		{{Key: "$match", Value: match}},
		{{Key: "$count", Value: "count"}},
	}

	cur, err := s.notifications.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	defer cur.Close(ctx) //nolint:errcheck

	var out []struct {
		Count int `bson:"count"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Count, nil
}
