package index

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// DefaultUpsertBatchSize bounds points per upsert request.
const DefaultUpsertBatchSize = 300

// QdrantIndex implements [Index] against a Qdrant collection over gRPC.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	dim         int
	batchSize   int
	logger      *log.Logger
}

// QdrantOptions configures a QdrantIndex.
type QdrantOptions struct {
	Addr       string // host:port of the gRPC endpoint
	Collection string
	Dim        int
	BatchSize  int
	APIKey     string // attached as the api-key header on every call when set
	UseTLS     bool   // dial with TLS; required for hosted Qdrant
	Logger     *log.Logger
}

// NewQdrantIndex connects to Qdrant and ensures the collection exists with
// cosine distance vectors of the configured dimension.
func NewQdrantIndex(ctx context.Context, opts QdrantOptions) (*QdrantIndex, error) {
	if opts.Addr == "" || opts.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant addr and collection", shared.ErrMissingConfig)
	}
	if opts.Dim <= 0 {
		return nil, fmt.Errorf("%w: qdrant dimension %d", shared.ErrInvalidConfig, opts.Dim)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultUpsertBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	transport := insecure.NewCredentials()
	if opts.UseTLS {
		transport = credentials.NewTLS(&tls.Config{})
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(transport)}
	if opts.APIKey != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(apiKeyInterceptor(opts.APIKey)))
	}

	conn, err := grpc.NewClient(opts.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", shared.ErrIndexUnavailable, err)
	}

	idx := &QdrantIndex{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  opts.Collection,
		dim:         opts.Dim,
		batchSize:   opts.BatchSize,
		logger:      opts.Logger,
	}

	if err := idx.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return idx, nil
}

// Close releases the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// apiKeyInterceptor attaches the api-key metadata header hosted Qdrant expects.
func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, callOpts...)
	}
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	list, err := q.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: listing collections: %v", shared.ErrIndexUnavailable, err)
	}

	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(q.dim),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", shared.ErrIndexUnavailable, q.collection, err)
	}

	q.logger.Info("created qdrant collection", "collection", q.collection, "dim", q.dim)
	return nil
}

// Upsert writes rows in batches, waiting for each batch to be applied, then
// verifies the collection count covers the upserted rows.
func (q *QdrantIndex) Upsert(ctx context.Context, rows []models.ChunkEmbedding) error {
	wait := true

	for start := 0; start < len(rows); start += q.batchSize {
		end := min(start+q.batchSize, len(rows))

		points := make([]*qdrantclient.PointStruct, 0, end-start)
		for _, row := range rows[start:end] {
			if len(row.Vector) != q.dim {
				return fmt.Errorf("%w: row %d has dim %d, expected %d", shared.ErrConsistency, row.ID, len(row.Vector), q.dim)
			}
			points = append(points, &qdrantclient.PointStruct{
				Id: &qdrantclient.PointId{
					PointIdOptions: &qdrantclient.PointId_Num{Num: row.ID},
				},
				Vectors: &qdrantclient.Vectors{
					VectorsOptions: &qdrantclient.Vectors_Vector{
						Vector: &qdrantclient.Vector{Data: row.Vector},
					},
				},
				Payload: toQdrantPayload(row.Meta),
			})
		}

		_, err := q.points.Upsert(ctx, &qdrantclient.UpsertPoints{
			CollectionName: q.collection,
			Points:         points,
			Wait:           &wait,
		})
		if err != nil {
			return fmt.Errorf("%w: upserting batch at %d: %v", shared.ErrIndexUnavailable, start, err)
		}

		q.logger.Debug("upserted batch", "done", end, "total", len(rows))
	}

	count, err := q.Count(ctx)
	if err != nil {
		return err
	}
	if count < uint64(len(rows)) {
		return fmt.Errorf("%w: collection has %d points after upserting %d rows", shared.ErrConsistency, count, len(rows))
	}

	return nil
}

// SearchBatch issues all queries as one batched request.
func (q *QdrantIndex) SearchBatch(ctx context.Context, vectors [][]float32, topK int, filter *Filter) ([][]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	searches := make([]*qdrantclient.SearchPoints, len(vectors))
	for i, vector := range vectors {
		searches[i] = &qdrantclient.SearchPoints{
			CollectionName: q.collection,
			Vector:         vector,
			Limit:          uint64(topK),
			WithPayload: &qdrantclient.WithPayloadSelector{
				SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
			},
			Filter: toQdrantFilter(filter),
		}
	}

	resp, err := q.points.SearchBatch(ctx, &qdrantclient.SearchBatchPoints{
		CollectionName: q.collection,
		SearchPoints:   searches,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: batch search: %v", shared.ErrIndexUnavailable, err)
	}

	batches := resp.GetResult()
	if len(batches) != len(vectors) {
		return nil, fmt.Errorf("%w: %d result sets for %d queries", shared.ErrConsistency, len(batches), len(vectors))
	}

	results := make([][]models.ScoredChunk, len(batches))
	for i, batch := range batches {
		hits := make([]models.ScoredChunk, 0, len(batch.GetResult()))
		for _, point := range batch.GetResult() {
			hits = append(hits, models.ScoredChunk{
				Score:   float64(point.GetScore()),
				Payload: fromQdrantPayload(point.GetPayload()),
			})
		}
		sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
		results[i] = hits
	}

	return results, nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := q.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", shared.ErrIndexUnavailable, err)
	}
	return resp.GetResult().GetCount(), nil
}

// toQdrantFilter renders a Filter as a keyword match condition.
func toQdrantFilter(filter *Filter) *qdrantclient.Filter {
	if filter.empty() {
		return nil
	}

	return &qdrantclient.Filter{
		Must: []*qdrantclient.Condition{{
			ConditionOneOf: &qdrantclient.Condition_Field{
				Field: &qdrantclient.FieldCondition{
					Key: models.MetaArtist,
					Match: &qdrantclient.Match{
						MatchValue: &qdrantclient.Match_Keywords{
							Keywords: &qdrantclient.RepeatedStrings{Strings: filter.Artists},
						},
					},
				},
			},
		}},
	}
}

// toQdrantPayload converts a chunk payload to the wire representation. Only the
// types our metadata uses are handled; anything else is stored as its string
// form.
func toQdrantPayload(meta map[string]any) map[string]*qdrantclient.Value {
	payload := make(map[string]*qdrantclient.Value, len(meta))
	for key, value := range meta {
		payload[key] = toQdrantValue(value)
	}
	return payload
}

func toQdrantValue(value any) *qdrantclient.Value {
	switch v := value.(type) {
	case string:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: v}}
	case bool:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_BoolValue{BoolValue: v}}
	case int:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(v)}}
	case int64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: v}}
	case float64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: v}}
	case []string:
		values := make([]*qdrantclient.Value, len(v))
		for i, s := range v {
			values[i] = toQdrantValue(s)
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{ListValue: &qdrantclient.ListValue{Values: values}}}
	case []any:
		values := make([]*qdrantclient.Value, len(v))
		for i, item := range v {
			values[i] = toQdrantValue(item)
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{ListValue: &qdrantclient.ListValue{Values: values}}}
	default:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: fmt.Sprintf("%v", v)}}
	}
}

func fromQdrantPayload(payload map[string]*qdrantclient.Value) map[string]any {
	meta := make(map[string]any, len(payload))
	for key, value := range payload {
		meta[key] = fromQdrantValue(value)
	}
	return meta
}

func fromQdrantValue(value *qdrantclient.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrantclient.Value_StringValue:
		return kind.StringValue
	case *qdrantclient.Value_BoolValue:
		return kind.BoolValue
	case *qdrantclient.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrantclient.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrantclient.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, fromQdrantValue(item))
		}
		return items
	default:
		return nil
	}
}
