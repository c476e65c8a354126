package transfer

import (
	"context"
	"log/slog"
	"net/http/httptrace"
	"sync"

	"doc-translator/internal/domain"
)

// Request contains the source document and stage callback for one run.
type Request struct {
	Document domain.Document
	OnStage  func(status domain.Status)
}

// Result contains the processed document and, for two-step runs, the upload
// acknowledgement and the service's check of the uploaded source. Verification
// is nil when the check was unavailable.
type Result struct {
	Document     domain.Document
	Ack          Ack
	Verification *Verification
}

// service abstracts the HTTP client for testability.
type service interface {
	Submit(ctx context.Context, doc domain.Document) (Ack, error)
	Verify(ctx context.Context) (Verification, error)
	Retrieve(ctx context.Context) (domain.Document, error)
	SubmitAndRetrieve(ctx context.Context, doc domain.Document) (domain.Document, error)
}

// Pipeline drives one submit/retrieve cycle under the configured contract.
type Pipeline struct {
	service  service
	contract domain.Contract
	logger   *slog.Logger
}

// NewPipeline constructs a pipeline over client.
func NewPipeline(client service, contract domain.Contract, logger *slog.Logger) *Pipeline {
	if contract == "" {
		contract = domain.ContractTwoStep
	}
	return &Pipeline{
		service:  client,
		contract: contract,
		logger:   logger.With("component", "pipeline", "contract", string(contract)),
	}
}

// Run transfers the document and returns the processed result. Stages are
// reported as transferring then processing; failures are not retried.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if req.Document.IsEmpty() {
		return Result{}, ErrNoDocument
	}

	if p.contract == domain.ContractCombined {
		return p.runCombined(ctx, req)
	}

	emitStage(req.OnStage, domain.StatusTransferring)
	ack, err := p.service.Submit(ctx, req.Document)
	if err != nil {
		return Result{}, err
	}

	verification := p.verify(ctx)

	emitStage(req.OnStage, domain.StatusProcessing)
	doc, err := p.service.Retrieve(ctx)
	if err != nil {
		return Result{}, err
	}

	return Result{Document: doc, Ack: ack, Verification: verification}, nil
}

// verify asks the service to inspect the uploaded source. Failures are logged
// and never fail the run.
func (p *Pipeline) verify(ctx context.Context) *Verification {
	v, err := p.service.Verify(ctx)
	if err != nil {
		p.logger.Warn("source verification unavailable", "error", err)
		return nil
	}
	p.logger.Info("source verified", "page_count", v.PageCount, "is_encrypted", v.IsEncrypted)
	return &v
}

// runCombined has no upload acknowledgement, so processing is reported once
// the request body has been written.
func (p *Pipeline) runCombined(ctx context.Context, req Request) (Result, error) {
	emitStage(req.OnStage, domain.StatusTransferring)

	var once sync.Once
	processing := func() {
		once.Do(func() { emitStage(req.OnStage, domain.StatusProcessing) })
	}
	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				processing()
			}
		},
	})

	doc, err := p.service.SubmitAndRetrieve(ctx, req.Document)
	if err != nil {
		return Result{}, err
	}
	processing()

	return Result{Document: doc}, nil
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(status domain.Status), status domain.Status) {
	if cb != nil {
		cb(status)
	}
}
