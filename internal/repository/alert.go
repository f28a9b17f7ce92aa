package repository

import (
	"context"
	"fmt"
	"time"

	"fleet-equipment-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DueSoonWindow is how far ahead an active alert counts as due soon.
const DueSoonWindow = 7 * 24 * time.Hour

// alertDocument is the stored shape of an alert. The source reference and
// metadata unions are flattened into the fields the collection has always
// used.
type alertDocument struct {
	ID            primitive.ObjectID    `bson:"_id,omitempty"`
	Title         string                `bson:"title"`
	Description   string                `bson:"description"`
	Type          models.AlertType      `bson:"type"`
	Priority      models.Priority       `bson:"priority"`
	Status        models.AlertStatus    `bson:"status"`
	SourceType    models.SourceType     `bson:"sourceType"`
	SourceID      *primitive.ObjectID   `bson:"sourceId,omitempty"`
	SourceName    string                `bson:"sourceName"`
	DueDate       *time.Time            `bson:"dueDate,omitempty"`
	ResolvedDate  *time.Time            `bson:"resolvedDate,omitempty"`
	ResolvedBy    *primitive.ObjectID   `bson:"resolvedBy,omitempty"`
	ResolvedNotes string                `bson:"resolvedNotes,omitempty"`
	AutoGenerated bool                  `bson:"autoGenerated"`
	Metadata      *models.MetadataInput `bson:"metadata,omitempty"`
	CreatedBy     primitive.ObjectID    `bson:"createdBy"`
	CreatedAt     time.Time             `bson:"createdAt"`
	UpdatedAt     time.Time             `bson:"updatedAt"`
}

func toAlertDocument(a *models.Alert) *alertDocument {
	doc := &alertDocument{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		Type:          a.Type,
		Priority:      a.Priority,
		Status:        a.Status,
		SourceName:    a.SourceName,
		DueDate:       a.DueDate,
		ResolvedDate:  a.ResolvedDate,
		ResolvedBy:    a.ResolvedBy,
		ResolvedNotes: a.ResolvedNotes,
		AutoGenerated: a.AutoGenerated,
		Metadata:      models.FlattenMetadata(a.Metadata),
		CreatedBy:     a.CreatedBy,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.Source != nil {
		doc.SourceType = a.Source.Type()
		if a.Source.Type() != models.SourceManual {
			id := a.Source.EntityID()
			doc.SourceID = &id
		}
	}
	return doc
}

func (d *alertDocument) toAlert() (*models.Alert, error) {
	sourceID := primitive.NilObjectID
	if d.SourceID != nil {
		sourceID = *d.SourceID
	}
	source, err := models.NewSourceRef(d.SourceType, sourceID)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", d.ID.Hex(), err)
	}
	metadata, err := models.BuildMetadata(d.Type, d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", d.ID.Hex(), err)
	}

	return &models.Alert{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		Type:          d.Type,
		Priority:      d.Priority,
		Status:        d.Status,
		Source:        source,
		SourceName:    d.SourceName,
		DueDate:       d.DueDate,
		ResolvedDate:  d.ResolvedDate,
		ResolvedBy:    d.ResolvedBy,
		ResolvedNotes: d.ResolvedNotes,
		AutoGenerated: d.AutoGenerated,
		Metadata:      metadata,
		CreatedBy:     d.CreatedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

// Alert list orderings.
const (
	SortNewest  = "newest"
	SortDueDate = "dueDate"
)

// AlertFilter selects alerts for listing. Zero values mean "any".
type AlertFilter struct {
	Status        models.AlertStatus
	Type          models.AlertType
	Priority      models.Priority
	Source        models.SourceRef
	SourceType    models.SourceType
	CreatedBy     *primitive.ObjectID
	AutoGenerated *bool
	// Overdue restricts to active alerts whose due date is before Now.
	Overdue   bool
	DueBefore *time.Time
	Now       time.Time
	Sort      string
	Page      int
	Limit     int
}

func buildAlertFilter(f AlertFilter) bson.M {
	filter := bson.M{}

	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.Source != nil {
		filter["sourceType"] = f.Source.Type()
		if f.Source.Type() != models.SourceManual {
			filter["sourceId"] = f.Source.EntityID()
		}
	} else if f.SourceType != "" {
		filter["sourceType"] = f.SourceType
	}
	if f.CreatedBy != nil {
		filter["createdBy"] = *f.CreatedBy
	}
	if f.AutoGenerated != nil {
		filter["autoGenerated"] = *f.AutoGenerated
	}

	due := bson.M{}
	if f.Overdue {
		filter["status"] = models.StatusActive
		due["$lt"] = f.Now
	}
	if f.DueBefore != nil {
		due["$lte"] = *f.DueBefore
	}
	if len(due) > 0 {
		filter["dueDate"] = due
	}

	return filter
}

// alertListPipeline matches, orders and pages alerts. Sorting by due date
// puts dated alerts first, soonest first, since Mongo orders a missing
// dueDate before any date.
func alertListPipeline(f AlertFilter) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: buildAlertFilter(f)}}}

	if f.Sort == SortDueDate {
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.M{
				"_undated": bson.M{"$cond": bson.A{bson.M{"$ifNull": bson.A{"$dueDate", false}}, 0, 1}},
			}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_undated", Value: 1}, {Key: "dueDate", Value: 1}, {Key: "createdAt", Value: -1}}}},
			bson.D{{Key: "$unset", Value: "_undated"}},
		)
	} else {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}})
	}

	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64((page - 1) * f.Limit)}},
			bson.D{{Key: "$limit", Value: int64(f.Limit)}},
		)
	}
	return pipeline
}

type AlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{
		collection: db.Collection("alerts"),
	}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, toAlertDocument(alert)); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc alertDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}

	return doc.toAlert()
}

// List returns one page of alerts matching the filter and the total match
// count.
func (r *AlertRepository) List(ctx context.Context, f AlertFilter) ([]*models.Alert, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := buildAlertFilter(f)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.collection.Aggregate(ctx, alertListPipeline(f))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	alerts, err := decodeAlerts(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// FindBySource returns every alert raised for one source entity, newest first.
func (r *AlertRepository) FindBySource(ctx context.Context, source models.SourceRef) ([]*models.Alert, error) {
	alerts, _, err := r.List(ctx, AlertFilter{Source: source})
	return alerts, err
}

// ExistsActive reports whether an active alert of the given type is already
// open for the source.
func (r *AlertRepository) ExistsActive(ctx context.Context, alertType models.AlertType, source models.SourceRef) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := buildAlertFilter(AlertFilter{Status: models.StatusActive, Type: alertType, Source: source})
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update replaces the stored alert with the given state.
func (r *AlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": alert.ID}, toAlertDocument(alert))
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type countBucket struct {
	ID    string `bson:"_id"`
	Count int64  `bson:"count"`
}

type statsFacet struct {
	ByStatus   []countBucket `bson:"byStatus"`
	ByPriority []countBucket `bson:"byPriority"`
	ByType     []countBucket `bson:"byType"`
	Overdue    []countBucket `bson:"overdue"`
	DueSoon    []countBucket `bson:"dueSoon"`
}

func groupBy(field string) bson.A {
	return bson.A{bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}}
}

func alertStatsPipeline(now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"byStatus":   groupBy("status"),
			"byPriority": groupBy("priority"),
			"byType":     groupBy("type"),
			"overdue": bson.A{
				bson.M{"$match": bson.M{"status": models.StatusActive, "dueDate": bson.M{"$lt": now}}},
				bson.M{"$count": "count"},
			},
			"dueSoon": bson.A{
				bson.M{"$match": bson.M{"status": models.StatusActive, "dueDate": bson.M{"$gte": now, "$lte": now.Add(DueSoonWindow)}}},
				bson.M{"$count": "count"},
			},
		}}},
	}
}

func statsFromFacet(f statsFacet) *models.AlertStatistics {
	stats := &models.AlertStatistics{
		ByStatus:   make(map[models.AlertStatus]int64),
		ByPriority: make(map[models.Priority]int64),
		ByType:     make(map[models.AlertType]int64),
	}
	for _, s := range models.AlertStatuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range models.Priorities {
		stats.ByPriority[p] = 0
	}

	for _, b := range f.ByStatus {
		stats.ByStatus[models.AlertStatus(b.ID)] = b.Count
		stats.Total += b.Count
	}
	for _, b := range f.ByPriority {
		stats.ByPriority[models.Priority(b.ID)] = b.Count
	}
	for _, b := range f.ByType {
		stats.ByType[models.AlertType(b.ID)] = b.Count
	}
	if len(f.Overdue) > 0 {
		stats.Overdue = f.Overdue[0].Count
	}
	if len(f.DueSoon) > 0 {
		stats.DueSoon = f.DueSoon[0].Count
	}
	return stats
}

// Statistics aggregates alert counts at now.
func (r *AlertRepository) Statistics(ctx context.Context, now time.Time) (*models.AlertStatistics, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := r.collection.Aggregate(ctx, alertStatsPipeline(now))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var facet statsFacet
	if cursor.Next(ctx) {
		if err := cursor.Decode(&facet); err != nil {
			return nil, err
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return statsFromFacet(facet), nil
}

func decodeAlerts(ctx context.Context, cursor *mongo.Cursor) ([]*models.Alert, error) {
	alerts := make([]*models.Alert, 0)
	for cursor.Next(ctx) {
		var doc alertDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		alert, err := doc.toAlert()
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, cursor.Err()
}
