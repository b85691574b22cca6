package storage

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/localehub/translation-management-backend/internal/models"
)

// MongoStore implements Store on top of MongoDB. The unique indexes created
// by NewMongoStore enforce the (key, locale) and tag-name invariants at the
// storage layer, so concurrent writers racing past the service's existence
// checks still fail atomically.
type MongoStore struct {
	translations *mongo.Collection
	tags         *mongo.Collection
	users        *mongo.Collection
}

// NewMongoStore wires the collections and creates the indexes the catalog
// relies on.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		translations: db.Collection("translations"),
		tags:         db.Collection("tags"),
		users:        db.Collection("users"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.translations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "translationKey", Value: 1}, {Key: "locale", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_key_locale"),
		},
		{Keys: bson.D{{Key: "locale", Value: 1}}, Options: options.Index().SetName("idx_locale")},
		{Keys: bson.D{{Key: "updatedAt", Value: 1}}, Options: options.Index().SetName("idx_updated_at")},
		{Keys: bson.D{{Key: "tags._id", Value: 1}}, Options: options.Index().SetName("idx_translation_tags")},
	})
	if err != nil {
		return err
	}

	_, err = s.tags.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_tag_name"),
	})
	if err != nil {
		return err
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_user_email"),
	})
	return err
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Translation, error) {
	var t models.Translation
	err := s.translations.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MongoStore) FindByKeyLocale(ctx context.Context, key, locale string) (*models.Translation, error) {
	var t models.Translation
	err := s.translations.FindOne(ctx, bson.M{"translationKey": key, "locale": locale}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MongoStore) ExistsByKeyLocale(ctx context.Context, key, locale string) (bool, error) {
	count, err := s.translations.CountDocuments(ctx, bson.M{"translationKey": key, "locale": locale}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoStore) Upsert(ctx context.Context, t *models.Translation, expectedVersion *int64) (*models.Translation, error) {
	now := time.Now().UTC()

	if t.ID == "" {
		saved := *t
		saved.ID = primitive.NewObjectID().Hex()
		saved.CreatedAt = now
		saved.UpdatedAt = now
		saved.Version = 0

		if _, err := s.translations.InsertOne(ctx, saved); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrDuplicateKey
			}
			return nil, err
		}
		return &saved, nil
	}

	expected := t.Version
	if expectedVersion != nil {
		expected = *expectedVersion
	}

	update := bson.M{
		"$set": bson.M{
			"translationKey": t.Key,
			"locale":         t.Locale,
			"content":        t.Content,
			"tags":           t.Tags,
			"updatedAt":      now,
		},
		"$inc": bson.M{"version": 1},
	}

	var saved models.Translation
	err := s.translations.FindOneAndUpdate(ctx,
		bson.M{"_id": t.ID, "version": expected},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&saved)
	if err == nil {
		return &saved, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicateKey
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// The filter missed: either the row is gone or the version advanced.
	count, countErr := s.translations.CountDocuments(ctx, bson.M{"_id": t.ID}, options.Count().SetLimit(1))
	if countErr != nil {
		return nil, countErr
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrVersionMismatch
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.translations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func buildSearchFilter(q Query) bson.M {
	filter := bson.M{}
	if q.Key != "" {
		filter["translationKey"] = bson.M{"$regex": regexp.QuoteMeta(q.Key)}
	}
	if q.Locale != "" {
		filter["locale"] = q.Locale
	}
	if q.Content != "" {
		filter["content"] = bson.M{"$regex": regexp.QuoteMeta(q.Content), "$options": "i"}
	}
	return filter
}

func (s *MongoStore) findPage(ctx context.Context, filter bson.M, q Query) ([]models.Translation, int64, error) {
	total, err := s.translations.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dir := 1
	if q.Desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: q.SortBy, Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Page) * int64(q.Size)).
		SetLimit(int64(q.Size))

	cursor, err := s.translations.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []models.Translation
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *MongoStore) Search(ctx context.Context, q Query) ([]models.Translation, int64, error) {
	return s.findPage(ctx, buildSearchFilter(q), q)
}

// SearchByTags is the tag-membership query path: tag names resolve to tag
// ids first, then translations referencing any of those ids are fetched.
func (s *MongoStore) SearchByTags(ctx context.Context, tagNames []string, q Query) ([]models.Translation, int64, error) {
	cursor, err := s.tags.Find(ctx, bson.M{"name": bson.M{"$in": tagNames}})
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var tags []models.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, 0, err
	}
	if len(tags) == 0 {
		return []models.Translation{}, 0, nil
	}

	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}

	filter := buildSearchFilter(q)
	filter["tags._id"] = bson.M{"$in": ids}
	return s.findPage(ctx, filter, q)
}

func (s *MongoStore) FindByLocale(ctx context.Context, locale string) ([]models.Translation, error) {
	return s.findByFilter(ctx, bson.M{"locale": locale}, bson.D{{Key: "translationKey", Value: 1}})
}

func (s *MongoStore) FindByLocaleSince(ctx context.Context, locale string, since time.Time) ([]models.Translation, error) {
	filter := bson.M{"locale": locale, "updatedAt": bson.M{"$gt": since}}
	return s.findByFilter(ctx, filter, bson.D{{Key: "updatedAt", Value: 1}})
}

func (s *MongoStore) findByFilter(ctx context.Context, filter bson.M, sortSpec bson.D) ([]models.Translation, error) {
	cursor, err := s.translations.Find(ctx, filter, options.Find().SetSort(sortSpec))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.Translation
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *MongoStore) DistinctLocales(ctx context.Context) ([]string, error) {
	values, err := s.translations.Distinct(ctx, "locale", bson.M{})
	if err != nil {
		return nil, err
	}
	locales := make([]string, 0, len(values))
	for _, v := range values {
		if locale, ok := v.(string); ok {
			locales = append(locales, locale)
		}
	}
	sort.Strings(locales)
	return locales, nil
}

func (s *MongoStore) InsertBatch(ctx context.Context, ts []models.Translation) error {
	if len(ts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(ts))
	for _, t := range ts {
		if t.ID == "" {
			t.ID = primitive.NewObjectID().Hex()
		}
		t.CreatedAt = now
		t.UpdatedAt = now
		t.Version = 0
		docs = append(docs, t)
	}
	_, err := s.translations.InsertMany(ctx, docs)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.translations.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) CountByLocale(ctx context.Context, locale string) (int64, error) {
	return s.translations.CountDocuments(ctx, bson.M{"locale": locale})
}

func (s *MongoStore) FindTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := s.tags.FindOne(ctx, bson.M{"name": name}).Decode(&tag)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *MongoStore) FindTagsByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	cursor, err := s.tags.Find(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tags []models.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *MongoStore) ExistsTagByName(ctx context.Context, name string) (bool, error) {
	count, err := s.tags.CountDocuments(ctx, bson.M{"name": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoStore) SaveTag(ctx context.Context, tag *models.Tag) (*models.Tag, error) {
	saved := *tag
	if saved.ID == "" {
		saved.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.tags.InsertOne(ctx, saved)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicateKey
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *MongoStore) SaveTags(ctx context.Context, tags []models.Tag) ([]models.Tag, error) {
	saved := make([]models.Tag, 0, len(tags))
	for i := range tags {
		tag, err := s.SaveTag(ctx, &tags[i])
		if err != nil {
			return nil, err
		}
		saved = append(saved, *tag)
	}
	return saved, nil
}

func (s *MongoStore) AllTags(ctx context.Context) ([]models.Tag, error) {
	cursor, err := s.tags.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tags []models.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *MongoStore) CountTags(ctx context.Context) (int64, error) {
	return s.tags.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) SaveUser(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	saved := *u
	if saved.ID == "" {
		saved.ID = primitive.NewObjectID().Hex()
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	_, err := s.users.ReplaceOne(ctx, bson.M{"_id": saved.ID}, saved, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicateKey
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}

var _ Store = (*MongoStore)(nil)
