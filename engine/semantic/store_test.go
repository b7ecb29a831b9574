package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// --- mocks ---

type mockPoints struct {
	upsertReq  *pb.UpsertPoints
	upsertErr  error
	getResp    *pb.GetResponse
	getReq     *pb.GetPoints
	getErr     error
	searchResp *pb.SearchResponse
	searchReq  *pb.SearchPoints
	searchErr  error
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = in
	return &pb.PointsOperationResponse{}, m.upsertErr
}

func (m *mockPoints) Get(_ context.Context, in *pb.GetPoints, _ ...grpc.CallOption) (*pb.GetResponse, error) {
	m.getReq = in
	return m.getResp, m.getErr
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.searchReq = in
	return m.searchResp, m.searchErr
}

type mockCollections struct {
	existing  []string
	created   []string
	listErr   error
	createErr error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	resp := &pb.ListCollectionsResponse{}
	for _, name := range m.existing {
		resp.Collections = append(resp.Collections, &pb.CollectionDescription{Name: name})
	}
	return resp, m.listErr
}

func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = append(m.created, in.GetCollectionName())
	return &pb.CollectionOperationResponse{}, m.createErr
}

func newTestStore(points *mockPoints, collections *mockCollections) *VectorStore {
	return NewWithClients(points, collections, "jobs", "applicants")
}

func payloadOf(kv map[string]string) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(kv))
	for k, v := range kv {
		out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return out
}

// --- tests ---

func TestEnsureCollections_CreatesMissing(t *testing.T) {
	colls := &mockCollections{existing: []string{"jobs"}}
	store := newTestStore(&mockPoints{}, colls)

	if err := store.EnsureCollections(context.Background(), Dims); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(colls.created) != 1 || colls.created[0] != "applicants" {
		t.Errorf("expected only applicants created, got %v", colls.created)
	}
}

func TestEnsureCollections_AllExist(t *testing.T) {
	colls := &mockCollections{existing: []string{"jobs", "applicants"}}
	store := newTestStore(&mockPoints{}, colls)

	if err := store.EnsureCollections(context.Background(), Dims); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(colls.created) != 0 {
		t.Errorf("expected no collections created, got %v", colls.created)
	}
}

func TestUpsert_PayloadAndCollection(t *testing.T) {
	points := &mockPoints{}
	store := newTestStore(points, &mockCollections{})

	rec := VectorRecord{
		ID:        "job-1",
		Embedding: []float32{0.1, 0.2},
		Meta:      map[string]string{"title": "Engineer"},
	}
	if err := store.Upsert(context.Background(), domain.KindJob, []VectorRecord{rec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := points.upsertReq
	if req.GetCollectionName() != "jobs" {
		t.Errorf("collection = %q, want jobs", req.GetCollectionName())
	}
	if !req.GetWait() {
		t.Error("expected wait=true upsert")
	}
	if len(req.GetPoints()) != 1 {
		t.Fatalf("expected 1 point, got %d", len(req.GetPoints()))
	}
	p := req.GetPoints()[0]
	if p.GetPayload()["id"].GetStringValue() != "job-1" {
		t.Error("expected record id in payload")
	}
	if p.GetPayload()["title"].GetStringValue() != "Engineer" {
		t.Error("expected metadata in payload")
	}
	if p.GetId().GetUuid() == "" {
		t.Error("expected a UUID point id")
	}
}

func TestUpsert_DeterministicPointID(t *testing.T) {
	if pointID("job-1") != pointID("job-1") {
		t.Error("expected stable point id for a record id")
	}
	if pointID("job-1") == pointID("job-2") {
		t.Error("expected distinct point ids for distinct records")
	}
}

func TestUpsert_UnknownKind(t *testing.T) {
	store := newTestStore(&mockPoints{}, &mockCollections{})
	err := store.Upsert(context.Background(), domain.Kind("vehicle"), nil)
	if !errors.Is(err, domain.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestUpsert_EmptyBatchIsNoop(t *testing.T) {
	points := &mockPoints{}
	store := newTestStore(points, &mockCollections{})
	if err := store.Upsert(context.Background(), domain.KindJob, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points.upsertReq != nil {
		t.Error("expected no upsert call for empty batch")
	}
}

func TestFetchByID_MissingIDsAbsent(t *testing.T) {
	points := &mockPoints{
		getResp: &pb.GetResponse{
			Result: []*pb.RetrievedPoint{{
				Payload: payloadOf(map[string]string{"id": "applicant-1", "name": "Sam"}),
				Vectors: &pb.VectorsOutput{VectorsOptions: &pb.VectorsOutput_Vector{
					Vector: &pb.VectorOutput{Data: []float32{1, 0}},
				}},
			}},
		},
	}
	store := newTestStore(points, &mockCollections{})

	got, err := store.FetchByID(context.Background(), domain.KindApplicant, []string{"applicant-1", "applicant-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 point, got %d", len(got))
	}
	p, ok := got["applicant-1"]
	if !ok {
		t.Fatal("expected applicant-1 present")
	}
	if p.Meta["name"] != "Sam" {
		t.Errorf("meta name = %q", p.Meta["name"])
	}
	if len(p.Vector) != 2 {
		t.Errorf("expected vector returned, got %v", p.Vector)
	}
	if _, ok := got["applicant-2"]; ok {
		t.Error("expected applicant-2 absent")
	}
}

func TestFetchByID_EmptyInput(t *testing.T) {
	points := &mockPoints{}
	store := newTestStore(points, &mockCollections{})
	got, err := store.FetchByID(context.Background(), domain.KindJob, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if points.getReq != nil {
		t.Error("expected no fetch call for empty input")
	}
}

func TestSearch_MapsResults(t *testing.T) {
	points := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{Score: 0.92, Payload: payloadOf(map[string]string{"id": "job-1", "title": "A"})},
				{Score: 0.81, Payload: payloadOf(map[string]string{"id": "job-2", "title": "B"})},
			},
		},
	}
	store := newTestStore(points, &mockCollections{})

	got, err := store.Search(context.Background(), domain.KindJob, []float32{0.5, 0.5}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	if got[0].ID != "job-1" || got[0].Score != 0.92 {
		t.Errorf("unexpected first hit: %+v", got[0])
	}
	if got[1].ID != "job-2" {
		t.Errorf("unexpected second hit: %+v", got[1])
	}
	if points.searchReq.GetLimit() != 2 {
		t.Errorf("limit = %d, want 2", points.searchReq.GetLimit())
	}
	if points.searchReq.GetCollectionName() != "jobs" {
		t.Errorf("collection = %q, want jobs", points.searchReq.GetCollectionName())
	}
}

func TestSearch_TransportError(t *testing.T) {
	wantErr := errors.New("unavailable")
	store := newTestStore(&mockPoints{searchErr: wantErr}, &mockCollections{})
	if _, err := store.Search(context.Background(), domain.KindJob, []float32{1}, 5); !errors.Is(err, wantErr) {
		t.Errorf("expected transport error, got %v", err)
	}
}
