package transfer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"doc-translator/internal/domain"
	"doc-translator/internal/logging"
)

// fakeService records calls and returns injected outcomes.
type fakeService struct {
	calls       []string
	submitErr   error
	retrieveErr error
	verifyErr   error
	result      domain.Document
}

func (f *fakeService) Submit(ctx context.Context, doc domain.Document) (Ack, error) {
	f.calls = append(f.calls, "submit")
	if f.submitErr != nil {
		return Ack{}, f.submitErr
	}
	return Ack{StatusCode: 200, Message: "ok"}, nil
}

func (f *fakeService) Verify(ctx context.Context) (Verification, error) {
	f.calls = append(f.calls, "verify")
	if f.verifyErr != nil {
		return Verification{}, f.verifyErr
	}
	return Verification{PageCount: 4, IsEncrypted: true}, nil
}

func (f *fakeService) Retrieve(ctx context.Context) (domain.Document, error) {
	f.calls = append(f.calls, "retrieve")
	return f.result, f.retrieveErr
}

func (f *fakeService) SubmitAndRetrieve(ctx context.Context, doc domain.Document) (domain.Document, error) {
	f.calls = append(f.calls, "submit-and-retrieve")
	return f.result, f.retrieveErr
}

// TestPipelineTwoStepStageOrder checks stages and call order on the happy path.
func TestPipelineTwoStepStageOrder(t *testing.T) {
	svc := &fakeService{result: domain.Document{ContentType: domain.ContentTypePDF, Data: []byte("out")}}
	var stages []domain.Status

	result, err := NewPipeline(svc, domain.ContractTwoStep, logging.Discard()).Run(context.Background(), Request{
		Document: samplePDF,
		OnStage:  func(s domain.Status) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if want := []string{"submit", "verify", "retrieve"}; !reflect.DeepEqual(svc.calls, want) {
		t.Fatalf("calls = %v, want %v", svc.calls, want)
	}
	if want := []domain.Status{domain.StatusTransferring, domain.StatusProcessing}; !reflect.DeepEqual(stages, want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	if string(result.Document.Data) != "out" || result.Ack.Message != "ok" {
		t.Fatalf("result = %+v", result)
	}
	if result.Verification == nil || result.Verification.PageCount != 4 || !result.Verification.IsEncrypted {
		t.Fatalf("verification = %+v, want 4 encrypted pages", result.Verification)
	}
}

// TestPipelineVerifyFailureIsNotFatal checks that a missing verify endpoint still yields the result.
func TestPipelineVerifyFailureIsNotFatal(t *testing.T) {
	svc := &fakeService{
		verifyErr: serviceError("verify", http.StatusNotFound, "Not Found", nil),
		result:    domain.Document{ContentType: domain.ContentTypePDF, Data: []byte("out")},
	}

	result, err := NewPipeline(svc, domain.ContractTwoStep, logging.Discard()).Run(context.Background(), Request{Document: samplePDF})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Verification != nil {
		t.Fatalf("verification = %+v, want nil", result.Verification)
	}
	if want := []string{"submit", "verify", "retrieve"}; !reflect.DeepEqual(svc.calls, want) {
		t.Fatalf("calls = %v, want %v", svc.calls, want)
	}
}

// TestPipelineSubmitFailureSkipsRetrieve checks that a failed upload never requests processing.
func TestPipelineSubmitFailureSkipsRetrieve(t *testing.T) {
	svc := &fakeService{submitErr: serviceError("submit", 500, "boom", nil)}
	var stages []domain.Status

	_, err := NewPipeline(svc, domain.ContractTwoStep, logging.Discard()).Run(context.Background(), Request{
		Document: samplePDF,
		OnStage:  func(s domain.Status) { stages = append(stages, s) },
	})
	if !IsService(err) {
		t.Fatalf("error = %v, want service failure", err)
	}
	if len(svc.calls) != 1 {
		t.Fatalf("calls = %v, want only submit", svc.calls)
	}
	if len(stages) != 1 || stages[0] != domain.StatusTransferring {
		t.Fatalf("stages = %v, want [transferring]", stages)
	}
}

// TestPipelineRetrieveFailurePropagates checks no retry after processing fails.
func TestPipelineRetrieveFailurePropagates(t *testing.T) {
	want := transportError("retrieve", errors.New("connection reset"))
	svc := &fakeService{retrieveErr: want}

	_, err := NewPipeline(svc, "", logging.Discard()).Run(context.Background(), Request{Document: samplePDF})
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
	if want := []string{"submit", "verify", "retrieve"}; !reflect.DeepEqual(svc.calls, want) {
		t.Fatalf("calls = %v, want %v", svc.calls, want)
	}
}

// TestPipelineRejectsEmptyDocument checks input validation.
func TestPipelineRejectsEmptyDocument(t *testing.T) {
	svc := &fakeService{}
	_, err := NewPipeline(svc, domain.ContractTwoStep, logging.Discard()).Run(context.Background(), Request{})
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("error = %v, want ErrNoDocument", err)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("calls = %v, want none", svc.calls)
	}
}

// TestPipelineCombinedReportsProcessingOnce checks the synthetic processing stage over real HTTP.
func TestPipelineCombinedReportsProcessingOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 translated"))
	}))
	defer server.Close()

	var (
		mu     sync.Mutex
		stages []domain.Status
	)
	pipeline := NewPipeline(newTestClient(t, server.URL, 0), domain.ContractCombined, logging.Discard())
	result, err := pipeline.Run(context.Background(), Request{
		Document: samplePDF,
		OnStage: func(s domain.Status) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, s)
		},
	})
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := []domain.Status{domain.StatusTransferring, domain.StatusProcessing}; !reflect.DeepEqual(stages, want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	if result.Document.IsEmpty() {
		t.Fatal("expected result document")
	}
}
