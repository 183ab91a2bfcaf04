package providers

import (
	"context"
	"time"
)

const (
	CallStatusOK    = "ok"
	CallStatusError = "error"
)

// CallRecord describes one finished generator call.
type CallRecord struct {
	Operation string
	Provider  ProviderInfo
	Status    string
	ErrorType ErrorType
	Latency   time.Duration
}

type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord)
}

// WithAudit reports every Generate call on llm to rec.
func WithAudit(llm LLMProvider, rec CallRecorder) LLMProvider {
	if rec == nil {
		return llm
	}
	return &auditedLLM{next: llm, rec: rec, now: time.Now}
}

type auditedLLM struct {
	next LLMProvider
	rec  CallRecorder
	now  func() time.Time
}

func (a *auditedLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	start := a.now()
	resp, info, err := a.next.Generate(ctx, req)
	rec := CallRecord{
		Operation: req.Operation,
		Provider:  info,
		Status:    CallStatusOK,
		Latency:   a.now().Sub(start),
	}
	if err != nil {
		rec.Status = CallStatusError
		rec.ErrorType = ClassifyError(err)
	}
	a.rec.RecordCall(context.WithoutCancel(ctx), rec)
	return resp, info, err
}
