package repository

import (
	"context"
	"fmt"

	"realty/internal/model"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace derives stable qdrant point ids from document ids
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("realty/listing-documents"))

// QdrantIndex keeps listing documents in a qdrant collection
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions int
}

// NewQdrantIndex connects to qdrant over gRPC
func NewQdrantIndex(host string, port int, collection string, dimensions int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &QdrantIndex{client: client, collection: collection, dimensions: dimensions}, nil
}

// PointID maps a document id to its qdrant point UUID
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

func (q *QdrantIndex) EnsureSchema(ctx context.Context) error {
	existing, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range existing {
		if name == q.collection {
			return nil
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}
	return nil
}

func (q *QdrantIndex) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	byPoint := make(map[string]string, len(ids))
	for i, id := range ids {
		pid := PointID(id)
		pointIDs[i] = qdrant.NewID(pid)
		byPoint[pid] = id
	}

	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read indexed ids: %w", err)
	}

	for _, point := range points {
		if docID, ok := byPoint[point.GetId().GetUuid()]; ok {
			existing[docID] = struct{}{}
		}
	}
	return existing, nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, docs []model.ListingDocument) error {
	if len(docs) == 0 {
		return nil
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         buildPoints(docs),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert documents: %w", err)
	}
	return nil
}

func buildPoints(docs []model.ListingDocument) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		vector := make([]float32, len(doc.Embedding))
		copy(vector, doc.Embedding)

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(doc.ID)),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"doc_id":            doc.ID,
				"text":              doc.Text,
				"price":             doc.Metadata.Price,
				"district":          doc.Metadata.District,
				"disposition":       doc.Metadata.Disposition,
				"surface":           doc.Metadata.Surface,
				"distance_to_metro": doc.Metadata.DistanceToMetro,
			}),
		}
	}
	return points
}

func (q *QdrantIndex) Query(ctx context.Context, embedding []float32, n int) ([]model.SemanticHit, error) {
	if n <= 0 {
		return []model.SemanticHit{}, nil
	}

	limit := uint64(n)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	hits := make([]model.SemanticHit, 0, len(scored))
	for _, point := range scored {
		hits = append(hits, hitFromPayload(point.GetPayload(), point.GetScore()))
	}
	return hits, nil
}

// hitFromPayload rebuilds a hit; qdrant reports cosine similarity, hits carry distance
func hitFromPayload(payload map[string]*qdrant.Value, score float32) model.SemanticHit {
	return model.SemanticHit{
		Text: payload["text"].GetStringValue(),
		Metadata: model.HitMetadata{
			Price:           numberValue(payload["price"]),
			District:        payload["district"].GetStringValue(),
			Disposition:     payload["disposition"].GetStringValue(),
			Surface:         numberValue(payload["surface"]),
			DistanceToMetro: numberValue(payload["distance_to_metro"]),
		},
		Distance: 1 - float64(score),
	}
}

func numberValue(val *qdrant.Value) float64 {
	if val == nil {
		return 0
	}
	if d := val.GetDoubleValue(); d != 0 {
		return d
	}
	return float64(val.GetIntegerValue())
}

func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	exact := true
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
