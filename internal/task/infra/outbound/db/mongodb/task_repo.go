package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	// --- Importaciones del dominio ---
	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TaskRepoMongoDB implementa la interfaz TaskRepository para MongoDB.
type TaskRepoMongoDB struct {
	client    *mongo.Client
	dbName    string
	tasksColl *mongo.Collection
}

var _ taskDomain.TaskRepository = (*TaskRepoMongoDB)(nil)

// NewTaskRepoMongoDB es el constructor del repositorio. Crea el índice único si no existe.
func NewTaskRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*TaskRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	r := &TaskRepoMongoDB{
		client:    client,
		dbName:    dbName,
		tasksColl: client.Database(dbName).Collection("tasks"),
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *TaskRepoMongoDB) ensureIndexes(ctx context.Context) error {
	_, err := r.tasksColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: 1}, {Key: "createdDate", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uk_task_title_date"),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("could not create task indexes: %w", err)
	}
	return nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoTask struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Priority    string     `bson:"priority"`
	Status      string     `bson:"status"`
	CreatedAt   time.Time  `bson:"createdAt"`
	CreatedDate string     `bson:"createdDate"`
	CompletedAt *time.Time `bson:"completedAt"`
}

// --- Escritura ---

func (r *TaskRepoMongoDB) Insert(ctx context.Context, t *taskDomain.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, err := r.tasksColl.InsertOne(ctx, toMongoTask(t)); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *TaskRepoMongoDB) Save(ctx context.Context, t *taskDomain.Task) error {
	mt := toMongoTask(t)
	update := bson.M{"$set": bson.M{
		"title":       mt.Title,
		"description": mt.Description,
		"priority":    mt.Priority,
		"status":      mt.Status,
		"completedAt": mt.CompletedAt,
	}}

	res, err := r.tasksColl.UpdateOne(ctx, bson.M{"_id": mt.ID}, update)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepoMongoDB) Delete(ctx context.Context, t *taskDomain.Task) error {
	res, err := r.tasksColl.DeleteOne(ctx, bson.M{"_id": t.ID.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

// --- Lectura ---

func (r *TaskRepoMongoDB) FindByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	var mt mongoTask
	err := r.tasksColl.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&mt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, err
	}
	return fromMongoTask(&mt)
}

func (r *TaskRepoMongoDB) FindAll(ctx context.Context) ([]*taskDomain.Task, error) {
	return r.find(ctx, bson.D{})
}

func (r *TaskRepoMongoDB) FindByStatus(ctx context.Context, status taskDomain.TaskStatus) ([]*taskDomain.Task, error) {
	return r.find(ctx, bson.D{{Key: "status", Value: string(status)}})
}

func (r *TaskRepoMongoDB) ExistsByTitleAndDate(ctx context.Context, title string, date taskDomain.Date) (bool, error) {
	n, err := r.tasksColl.CountDocuments(ctx,
		bson.D{{Key: "title", Value: title}, {Key: "createdDate", Value: date.String()}},
		options.Count().SetLimit(1),
	)
	return n > 0, err
}

func (r *TaskRepoMongoDB) ExistsByTitleAndDateExcludingID(ctx context.Context, title string, date taskDomain.Date, id uuid.UUID) (bool, error) {
	n, err := r.tasksColl.CountDocuments(ctx,
		bson.D{
			{Key: "title", Value: title},
			{Key: "createdDate", Value: date.String()},
			{Key: "_id", Value: bson.M{"$ne": id.String()}},
		},
		options.Count().SetLimit(1),
	)
	return n > 0, err
}

func (r *TaskRepoMongoDB) find(ctx context.Context, filter bson.D) ([]*taskDomain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.tasksColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := make([]*taskDomain.Task, 0)
	for cursor.Next(ctx) {
		var mt mongoTask
		if err := cursor.Decode(&mt); err != nil {
			return nil, err
		}
		t, err := fromMongoTask(&mt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, cursor.Err()
}

// --- Helpers de Mapeo y Conversión ---

func toMongoTask(t *taskDomain.Task) *mongoTask {
	mt := &mongoTask{
		ID: t.ID.String(), Title: t.Title, Description: t.Description,
		Priority: string(t.Priority), Status: string(t.Status),
		CreatedAt: t.CreatedAt.UTC(), CreatedDate: t.CreatedDate.String(),
	}
	if t.CompletedAt != nil {
		at := t.CompletedAt.UTC()
		mt.CompletedAt = &at
	}
	return mt
}

func fromMongoTask(mt *mongoTask) (*taskDomain.Task, error) {
	id, err := uuid.Parse(mt.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in document: %w", err)
	}
	date, err := taskDomain.ParseDate(mt.CreatedDate)
	if err != nil {
		return nil, err
	}

	t := &taskDomain.Task{
		ID: id, Title: mt.Title, Description: mt.Description,
		Priority: taskDomain.TaskPriority(mt.Priority), Status: taskDomain.TaskStatus(mt.Status),
		CreatedAt: mt.CreatedAt.UTC(), CreatedDate: date,
	}
	if mt.CompletedAt != nil {
		at := mt.CompletedAt.UTC()
		t.CompletedAt = &at
	}
	return t, nil
}

func translateError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", taskDomain.ErrConflict, err.Error())
	}
	return err
}
