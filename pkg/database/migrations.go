package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikerental/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const migrationsCollection = "migrations"

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
	Down        func(ctx context.Context, db *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	logger     *logger.Logger
	migrations []Migration
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		logger:     log,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.logger.WithField("version", migration.Version).Infof("Running migration: %s", migration.Description)

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version > currentVersion || migration.Version <= targetVersion {
			continue
		}

		m.logger.WithField("version", migration.Version).Infof("Reverting migration: %s", migration.Description)

		if err := migration.Down(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
		}

		previousVersion := 0
		if i > 0 {
			previousVersion = m.migrations[i-1].Version
		}
		if err := m.updateVersion(ctx, previousVersion); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(migrationsCollection).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection(migrationsCollection).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updatedAt", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)
	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create bikes indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				return createIndexes(ctx, db.Collection("bikes"), bikeIndexes())
			},
			Down: func(ctx context.Context, db *mongo.Database) error {
				return dropIndexes(ctx, db.Collection("bikes"))
			},
		},
		{
			Version:     2,
			Description: "Create bookings indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				return createIndexes(ctx, db.Collection("bookings"), bookingIndexes())
			},
			Down: func(ctx context.Context, db *mongo.Database) error {
				return dropIndexes(ctx, db.Collection("bookings"))
			},
		},
		{
			Version:     3,
			Description: "Create payments indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				return createIndexes(ctx, db.Collection("payments"), paymentIndexes())
			},
			Down: func(ctx context.Context, db *mongo.Database) error {
				return dropIndexes(ctx, db.Collection("payments"))
			},
		},
	}
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", collection.Name(), err)
	}
	return nil
}

func dropIndexes(ctx context.Context, collection *mongo.Collection) error {
	if _, err := collection.Indexes().DropAll(ctx); err != nil {
		return fmt.Errorf("failed to drop indexes on %s: %w", collection.Name(), err)
	}
	return nil
}

func bikeIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "bikeId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "vehicles.vehicleNumber", Value: 1}}},
		{Keys: bson.D{{Key: "vehicles.status", Value: 1}, {Key: "vehicles.metadata.holdExpiryTime", Value: 1}}},
		{Keys: bson.D{{Key: "modelInfo.category", Value: 1}, {Key: "isActive", Value: 1}}},
	}
}

func bookingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "bookingStatus", Value: 1}, {Key: "fromDate", Value: 1}}},
		{Keys: bson.D{{Key: "bookingStatus", Value: 1}, {Key: "toDate", Value: 1}}},
		{Keys: bson.D{{Key: "vehicles.bikeId", Value: 1}, {Key: "vehicles.vehicleNumber", Value: 1}}},
	}
}

func paymentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "paymentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "razorpayOrderId", Value: 1}}},
	}
}
