package store

import (
	"context"
	"errors"
	"fmt"

	"civicconnect/internal/domain"
	"civicconnect/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongo wires every repository to collections of db.
func NewMongo(db *mongo.Database) *Store {
	return &Store{
		Complaints:    &mongoComplaints{coll: db.Collection(ComplaintsCollection)},
		Notifications: &mongoNotifications{coll: db.Collection(NotificationsCollection)},
		Users:         &mongoUsers{coll: db.Collection(UsersCollection)},
		Posts:         &mongoPosts{coll: db.Collection(CommunityPostsCollection)},
		Notes:         &mongoNotes{coll: db.Collection(NotesCollection)},
	}
}

type mongoComplaints struct {
	coll *mongo.Collection
}

func (s *mongoComplaints) Insert(ctx context.Context, c *models.Complaint) error {
	c.ID = primitive.NilObjectID
	c.Version = 1

	res, err := s.coll.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert complaint: %w", err)
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func complaintIDQuery(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$or": bson.A{
			bson.M{"complaintId": id},
			bson.M{"_id": oid},
		}}
	}
	return bson.M{"complaintId": id}
}

func (s *mongoComplaints) Get(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.coll.FindOne(ctx, complaintIDQuery(id)).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("complaint")
		}
		return nil, fmt.Errorf("find complaint: %w", err)
	}
	return &c, nil
}

func (s *mongoComplaints) Update(ctx context.Context, c *models.Complaint) error {
	prev := c.Version
	c.Version = prev + 1

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": c.ID, "version": prev}, c)
	if err != nil {
		c.Version = prev
		return fmt.Errorf("update complaint: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	c.Version = prev
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": c.ID})
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	if n == 0 {
		return domain.NotFound("complaint")
	}
	return fmt.Errorf("complaint %s modified concurrently: %w", c.ComplaintID, domain.ErrConflict)
}

func complaintQuery(f ComplaintFilter) bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["complaintUser"] = *f.UserID
	}
	if f.Department != "" {
		q["complaintAuthority"] = f.Department
	}
	if f.Status != "" {
		q["complaintStatus"] = f.Status
	}
	return q
}

func complaintSort(sortBy string) bson.D {
	switch sortBy {
	case SortAIPriority:
		return bson.D{{Key: "complaintAIScore", Value: -1}, {Key: "createdAt", Value: -1}}
	case SortResolvedDate:
		return bson.D{{Key: "complaintResolvedDate", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func (s *mongoComplaints) List(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	opts := options.Find().SetSort(complaintSort(f.SortBy))
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cursor, err := s.coll.Find(ctx, complaintQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer cursor.Close(ctx)

	complaints := make([]models.Complaint, 0)
	if err := cursor.All(ctx, &complaints); err != nil {
		return nil, fmt.Errorf("decode complaints: %w", err)
	}
	return complaints, nil
}

type countRow struct {
	ID    string  `bson:"_id"`
	Count int64   `bson:"count"`
	Sum   float64 `bson:"sum"`
}

// Stats runs one $facet pipeline so every figure comes from the same snapshot.
func (s *mongoComplaints) Stats(ctx context.Context, f ComplaintFilter) (*models.AuthorityStats, error) {
	bucketBranches := bson.A{}
	bounds := []float64{20, 40, 60, 80}
	for i, upper := range bounds {
		bucketBranches = append(bucketBranches, bson.M{
			"case": bson.M{"$lte": bson.A{"$complaintAIScore", upper}},
			"then": models.ConfidenceBuckets[i],
		})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: complaintQuery(f)}},
		{{Key: "$facet", Value: bson.M{
			"status": bson.A{
				bson.M{"$group": bson.M{"_id": "$complaintStatus", "count": bson.M{"$sum": 1}}},
			},
			"confidence": bson.A{
				bson.M{"$match": bson.M{"complaintAIScore": bson.M{"$gt": 0}}},
				bson.M{"$group": bson.M{
					"_id": bson.M{"$switch": bson.M{
						"branches": bucketBranches,
						"default":  models.ConfidenceBuckets[len(models.ConfidenceBuckets)-1],
					}},
					"count": bson.M{"$sum": 1},
					"sum":   bson.M{"$sum": "$complaintAIScore"},
				}},
			},
			"categories": bson.A{
				bson.M{"$group": bson.M{"_id": "$complaintType", "count": bson.M{"$sum": 1}}},
			},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Status     []countRow `bson:"status"`
		Confidence []countRow `bson:"confidence"`
		Categories []countRow `bson:"categories"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}

	acc := newStatsAccumulator()
	if len(facets) > 0 {
		for _, row := range facets[0].Status {
			acc.addStatus(row.ID, row.Count)
		}
		for _, row := range facets[0].Confidence {
			acc.addScores(row.ID, row.Count, row.Sum)
		}
		for _, row := range facets[0].Categories {
			acc.addCategory(row.ID, row.Count)
		}
	}
	return acc.result(), nil
}

func statusCount(status string) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$complaintStatus", status}}, 1, 0}}}
}

func (s *mongoComplaints) UserStats(ctx context.Context, userID primitive.ObjectID) (*models.UserStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"complaintUser": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"totalComplaints": bson.M{"$sum": 1},
			"resolved":        statusCount(models.StatusResolved),
			"pending":         statusCount(models.StatusPending),
			"inProgress":      statusCount(models.StatusInProgress),
			"rejected":        statusCount(models.StatusRejected),
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate user stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.UserStats
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode user stats: %w", err)
	}

	stats := &models.UserStats{}
	if len(rows) > 0 {
		stats = &rows[0]
	}
	stats.ImpactPoints = models.ImpactPoints(stats.TotalComplaints, stats.Resolved)
	return stats, nil
}

func (s *mongoComplaints) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":                "$complaintUser",
			"totalComplaints":    bson.M{"$sum": 1},
			"resolvedComplaints": statusCount(models.StatusResolved),
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         UsersCollection,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$project", Value: bson.M{
			"userName":           "$user.userName",
			"userEmail":          "$user.userEmail",
			"totalComplaints":    1,
			"resolvedComplaints": 1,
			"impactPoints": bson.M{"$add": bson.A{
				bson.M{"$multiply": bson.A{"$totalComplaints", 10}},
				bson.M{"$multiply": bson.A{"$resolvedComplaints", 50}},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "impactPoints", Value: -1}, {Key: "totalComplaints", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]models.LeaderboardEntry, 0, limit)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return entries, nil
}

func (s *mongoComplaints) ExistsByMediaHash(ctx context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	n, err := s.coll.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"complaintImageHash": hash},
		bson.M{"complaintVideoHash": hash},
	}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("lookup media hash: %w", err)
	}
	return n > 0, nil
}
