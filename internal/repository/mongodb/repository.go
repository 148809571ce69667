package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/repository"
)

const (
	flocksCollection       = "flocks"
	logsCollection         = "daily_logs"
	inventoryCollection    = "inventory"
	vaccinationsCollection = "vaccinations"
	reportsCollection      = "daily_reports"
)

// logDocument stores a daily log alongside its owning flock.
type logDocument struct {
	FlockID         string `bson:"flock_id"`
	models.DailyLog `bson:",inline"`
}

// MongoDBRepository implements repository.Store on MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects to MongoDB, verifies the connection and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := NewFromDatabase(client.Database(dbName), logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return repo, nil
}

// NewFromDatabase wraps an already connected database handle.
func NewFromDatabase(db *mongo.Database, logger *zap.Logger) *MongoDBRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoDBRepository{client: db.Client(), db: db, logger: logger}
}

// EnsureIndexes creates the indexes the queries rely on.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(logsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "flock_id", Value: 1}, {Key: "day", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create daily_logs index: %w", err)
	}

	_, err = r.db.Collection(vaccinationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "flock_id", Value: 1}, {Key: "scheduled_date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create vaccinations index: %w", err)
	}

	r.logger.Debug("mongodb indexes ensured")
	return nil
}

// CreateFlock inserts a new flock.
func (r *MongoDBRepository) CreateFlock(ctx context.Context, flock models.Flock) error {
	if _, err := r.db.Collection(flocksCollection).InsertOne(ctx, flock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to insert flock: %w", err)
	}
	return nil
}

// GetFlock loads a flock by id.
func (r *MongoDBRepository) GetFlock(ctx context.Context, id string) (models.Flock, error) {
	var flock models.Flock
	err := r.db.Collection(flocksCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&flock)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Flock{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Flock{}, fmt.Errorf("failed to load flock %s: %w", id, err)
	}
	return flock, nil
}

// ListFlocks returns every flock ordered by start date.
func (r *MongoDBRepository) ListFlocks(ctx context.Context) ([]models.Flock, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := r.db.Collection(flocksCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list flocks: %w", err)
	}

	flocks := []models.Flock{}
	if err := cursor.All(ctx, &flocks); err != nil {
		return nil, fmt.Errorf("failed to decode flocks: %w", err)
	}
	return flocks, nil
}

// DecrementLiveCount lowers current_count with a pipeline update clamped at zero.
func (r *MongoDBRepository) DecrementLiveCount(ctx context.Context, id string, n int) (models.Flock, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "current_count", Value: bson.D{{Key: "$max", Value: bson.A{
			0,
			bson.D{{Key: "$subtract", Value: bson.A{"$current_count", n}}},
		}}}}}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var flock models.Flock
	err := r.db.Collection(flocksCollection).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&flock)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Flock{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Flock{}, fmt.Errorf("failed to update live count of flock %s: %w", id, err)
	}
	return flock, nil
}

// CloseFlock sets status and closed_at on a flock that is still active.
func (r *MongoDBRepository) CloseFlock(ctx context.Context, id string, at time.Time) (models.Flock, error) {
	filter := bson.M{"_id": id, "status": models.FlockActive}
	update := bson.M{"$set": bson.M{"status": models.FlockClosed, "closed_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var flock models.Flock
	err := r.db.Collection(flocksCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&flock)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetFlock(ctx, id); getErr != nil {
			return models.Flock{}, getErr
		}
		return models.Flock{}, repository.ErrConflict
	}
	if err != nil {
		return models.Flock{}, fmt.Errorf("failed to close flock %s: %w", id, err)
	}
	return flock, nil
}

// AppendDailyLog stores a log; a second log for the same day is a conflict.
func (r *MongoDBRepository) AppendDailyLog(ctx context.Context, flockID string, log models.DailyLog) error {
	doc := logDocument{FlockID: flockID, DailyLog: log}
	if _, err := r.db.Collection(logsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to insert daily log: %w", err)
	}
	return nil
}

// ListDailyLogs returns the logs of a flock ascending by day.
func (r *MongoDBRepository) ListDailyLogs(ctx context.Context, flockID string) ([]models.DailyLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "day", Value: 1}})
	cursor, err := r.db.Collection(logsCollection).Find(ctx, bson.M{"flock_id": flockID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily logs: %w", err)
	}

	var docs []logDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode daily logs: %w", err)
	}

	logs := make([]models.DailyLog, len(docs))
	for i, doc := range docs {
		logs[i] = doc.DailyLog
	}
	return logs, nil
}

// UpsertItem creates or replaces an inventory item.
func (r *MongoDBRepository) UpsertItem(ctx context.Context, item models.InventoryItem) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.db.Collection(inventoryCollection).ReplaceOne(ctx, bson.M{"_id": item.ID}, item, opts); err != nil {
		return fmt.Errorf("failed to upsert inventory item %s: %w", item.ID, err)
	}
	return nil
}

// GetItem loads an inventory item by id.
func (r *MongoDBRepository) GetItem(ctx context.Context, id string) (models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.Collection(inventoryCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.InventoryItem{}, repository.ErrNotFound
	}
	if err != nil {
		return models.InventoryItem{}, fmt.Errorf("failed to load inventory item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns all inventory items sorted by name.
func (r *MongoDBRepository) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.db.Collection(inventoryCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}

	items := []models.InventoryItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	return items, nil
}

// AdjustQuantity increments the quantity by delta in a single conditional update.
func (r *MongoDBRepository) AdjustQuantity(ctx context.Context, id string, delta float64, at time.Time) (models.InventoryItem, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updated_at": at},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item models.InventoryItem
	err := r.db.Collection(inventoryCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetItem(ctx, id); getErr != nil {
			return models.InventoryItem{}, getErr
		}
		return models.InventoryItem{}, repository.ErrInsufficientQuantity
	}
	if err != nil {
		return models.InventoryItem{}, fmt.Errorf("failed to adjust inventory item %s: %w", id, err)
	}
	return item, nil
}

// SaveVaccination creates or replaces a vaccination record.
func (r *MongoDBRepository) SaveVaccination(ctx context.Context, v models.Vaccination) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.db.Collection(vaccinationsCollection).ReplaceOne(ctx, bson.M{"_id": v.ID}, v, opts); err != nil {
		return fmt.Errorf("failed to save vaccination %s: %w", v.ID, err)
	}
	return nil
}

// GetVaccination loads a vaccination by id.
func (r *MongoDBRepository) GetVaccination(ctx context.Context, id string) (models.Vaccination, error) {
	var v models.Vaccination
	err := r.db.Collection(vaccinationsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Vaccination{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Vaccination{}, fmt.Errorf("failed to load vaccination %s: %w", id, err)
	}
	return v, nil
}

// MarkAdministered sets administered_at only on a record where it is still unset.
func (r *MongoDBRepository) MarkAdministered(ctx context.Context, id string, at time.Time) (models.Vaccination, error) {
	filter := bson.M{"_id": id, "administered_at": nil}
	update := bson.M{"$set": bson.M{"administered_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var v models.Vaccination
	err := r.db.Collection(vaccinationsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetVaccination(ctx, id); getErr != nil {
			return models.Vaccination{}, getErr
		}
		return models.Vaccination{}, repository.ErrConflict
	}
	if err != nil {
		return models.Vaccination{}, fmt.Errorf("failed to administer vaccination %s: %w", id, err)
	}
	return v, nil
}

// ListVaccinations returns a flock's vaccinations by scheduled date.
func (r *MongoDBRepository) ListVaccinations(ctx context.Context, flockID string) ([]models.Vaccination, error) {
	return r.findVaccinations(ctx, bson.M{"flock_id": flockID})
}

// ListVaccinationsBetween returns vaccinations scheduled in [from, to).
func (r *MongoDBRepository) ListVaccinationsBetween(ctx context.Context, from, to time.Time) ([]models.Vaccination, error) {
	return r.findVaccinations(ctx, bson.M{"scheduled_date": bson.M{"$gte": from, "$lt": to}})
}

func (r *MongoDBRepository) findVaccinations(ctx context.Context, filter bson.M) ([]models.Vaccination, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_date", Value: 1}})
	cursor, err := r.db.Collection(vaccinationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list vaccinations: %w", err)
	}

	vaccinations := []models.Vaccination{}
	if err := cursor.All(ctx, &vaccinations); err != nil {
		return nil, fmt.Errorf("failed to decode vaccinations: %w", err)
	}
	return vaccinations, nil
}

// SaveDailyReport saves a daily report to the database.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	if _, err := r.db.Collection(reportsCollection).InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
