// Package semantic owns all Qdrant operations for the two vector
// partitions: one collection per record kind (jobs, applicants).
package semantic

import (
	"context"
	"fmt"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dims is the embedding dimensionality both collections are provisioned
// with.
const Dims = 768

// PointsAPI is the subset of the Qdrant points client the store uses.
type PointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// CollectionsAPI is the subset of the Qdrant collections client the
// store uses.
type CollectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of Qdrant access. Record ids are mapped
// to deterministic point UUIDs, so re-upserting the same id replaces
// the previous point.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      PointsAPI
	collections CollectionsAPI
	jobs        string
	applicants  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC
// address, with one collection per partition.
func New(addr, jobsCollection, applicantsCollection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		jobs:        jobsCollection,
		applicants:  applicantsCollection,
	}, nil
}

// NewWithClients creates a VectorStore from pre-built clients. Used in
// tests.
func NewWithClients(points PointsAPI, collections CollectionsAPI, jobsCollection, applicantsCollection string) *VectorStore {
	return &VectorStore{
		points:      points,
		collections: collections,
		jobs:        jobsCollection,
		applicants:  applicantsCollection,
	}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

func (v *VectorStore) collectionFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindJob:
		return v.jobs, nil
	case domain.KindApplicant:
		return v.applicants, nil
	}
	return "", fmt.Errorf("semantic: %w: %q", domain.ErrUnknownKind, kind)
}

// EnsureCollections provisions both partitions with cosine distance.
// Both must exist before first use; callers treat failure as fatal at
// startup.
func (v *VectorStore) EnsureCollections(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	existing := make(map[string]bool, len(list.GetCollections()))
	for _, c := range list.GetCollections() {
		existing[c.GetName()] = true
	}

	for _, name := range []string{v.jobs, v.applicants} {
		if existing[name] {
			continue
		}
		_, err := v.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: name,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(dims),
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("semantic: create collection %s: %w", name, err)
		}
	}
	return nil
}

// pointID derives the deterministic point UUID for a record id.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// Upsert stores records into the given partition, replacing any existing
// point with the same record id. The record id is kept in the payload so
// search and fetch can map points back to records.
func (v *VectorStore) Upsert(ctx context.Context, kind domain.Kind, records []VectorRecord) error {
	coll, err := v.collectionFor(kind)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := make(map[string]*pb.Value, len(r.Meta)+1)
		for k, val := range r.Meta {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: val}}
		}
		payload["id"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.ID}}

		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(r.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err = v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: coll,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// FetchByID retrieves vectors and metadata for the given record ids.
// Ids not present in the partition are simply absent from the result.
func (v *VectorStore) FetchByID(ctx context.Context, kind domain.Kind, ids []string) (map[string]Point, error) {
	coll, err := v.collectionFor(kind)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return map[string]Point{}, nil
	}

	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(id)}}
	}

	resp, err := v.points.Get(ctx, &pb.GetPoints{
		CollectionName: coll,
		Ids:            pointIDs,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: get %d points: %w", len(ids), err)
	}

	out := make(map[string]Point, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		meta := payloadToMeta(p.GetPayload())
		id := meta["id"]
		if id == "" {
			continue
		}
		out[id] = Point{
			Vector: p.GetVectors().GetVector().GetData(),
			Meta:   meta,
		}
	}
	return out, nil
}

// Search performs k-NN similarity search in the given partition. Results
// come back sorted by descending cosine similarity.
func (v *VectorStore) Search(ctx context.Context, kind domain.Kind, vector []float32, k int) ([]SearchResult, error) {
	coll, err := v.collectionFor(kind)
	if err != nil {
		return nil, err
	}

	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: coll,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		meta := payloadToMeta(r.GetPayload())
		results[i] = SearchResult{
			ID:    meta["id"],
			Score: r.GetScore(),
			Meta:  meta,
		}
	}
	return results, nil
}

func payloadToMeta(payload map[string]*pb.Value) map[string]string {
	meta := make(map[string]string, len(payload))
	for k, val := range payload {
		meta[k] = val.GetStringValue()
	}
	return meta
}
