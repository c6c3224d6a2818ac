// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestration runs the conversation. Each user turn is merged into
// the session, classified into one Intent and dispatched to the handler
// bound to that intent. Handlers drive the role agents, which reach the
// retrieval corpora and each other through their tools.
//
// A turn works on a session.Turn draft and commits it at the end, so a
// failed turn leaves the session exactly as it was.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MakeNowJust/heredoc"
	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/agent"
	"github.com/teradata-labs/dealdraft/pkg/communication"
	"github.com/teradata-labs/dealdraft/pkg/ingest"
	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/retrieval"
	"github.com/teradata-labs/dealdraft/pkg/session"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// Callers of the orchestrator's own model calls.
const (
	CallerSummarizer = "summarizer"
	CallerGeneral    = "general"
)

// User-facing texts for turns that did not complete.
const (
	retryText      = "The model service is not responding right now. Please retry in a moment."
	failText       = "I could not complete that. Nothing was changed."
	unclearText    = "I could not work out what you want to do. Try rephrasing, for example \"analyze the brief\" or \"draft the executive summary\"."
	incompleteNote = "Note: data sources incomplete. Some searches failed, so this answer may miss material."
)

// summaryInputLimit caps the document text sent for auto-summaries.
const summaryInputLimit = 8000

var summarizerPrompt = heredoc.Doc(`
	You summarize documents for a credit team. Write two or three plain
	sentences naming the borrower, the purpose and the headline figures. Do
	not add anything that is not in the document.
`)

// ModelGateway is the part of llm.Gateway the orchestrator uses.
type ModelGateway interface {
	Call(ctx context.Context, req *llm.CallRequest) (*llm.CallResponse, error)
	Stream(ctx context.Context, req *llm.CallRequest, onChunk func(string)) (*llm.CallResponse, error)
}

// Config configures an Orchestrator. Gateway and the three role agents are
// required.
type Config struct {
	Gateway ModelGateway

	// Agents by role name: agent.Analyst, agent.Compliance, agent.Writer.
	Agents map[string]*agent.Agent

	// Bus carries agent queries. Agents not yet registered are registered
	// under their names. A nil Bus gets a fresh in-memory one.
	Bus *communication.Bus

	// Retriever indexes uploads into retrieval.CorpusUploaded. Optional.
	Retriever retrieval.Retriever
	// RetrievalLog is the log the search tool writes to.
	RetrievalLog *retrieval.Log

	Store *session.Store

	// OnProgress, when set, receives progress steps as they happen.
	OnProgress ProgressCallback
	// OnChunk, when set, receives general answers as they stream.
	OnChunk func(string)

	Tracer observability.Tracer
	Logger *zap.Logger
}

type handler func(ctx context.Context, tc *turnContext) error

// Orchestrator runs turns against one session. Turns are serialized.
type Orchestrator struct {
	mu sync.Mutex

	gateway      ModelGateway
	agents       map[string]*agent.Agent
	bus          *communication.Bus
	retriever    retrieval.Retriever
	retrievalLog *retrieval.Log
	store        *session.Store
	classifier   *Classifier
	schemas      *schemaSet

	handlers map[Intent]handler
	calls    map[Intent]int

	onProgress ProgressCallback
	onChunk    func(string)

	tracer observability.Tracer
	logger *zap.Logger
}

// New creates an orchestrator and binds the handler table.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("orchestration: gateway is required")
	}
	for _, role := range agent.Roles {
		if cfg.Agents[role] == nil {
			return nil, fmt.Errorf("orchestration: missing %s agent", role)
		}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoOpTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Bus == nil {
		cfg.Bus = communication.NewBus(nil, cfg.Tracer, cfg.Logger)
	}
	if cfg.RetrievalLog == nil {
		cfg.RetrievalLog = retrieval.NewLog()
	}
	if cfg.Store == nil {
		cfg.Store = session.NewStore("")
	}

	for name, a := range cfg.Agents {
		if !cfg.Bus.Registered(name) {
			cfg.Bus.Register(name, a)
		}
	}

	o := &Orchestrator{
		gateway:      cfg.Gateway,
		agents:       cfg.Agents,
		bus:          cfg.Bus,
		retriever:    cfg.Retriever,
		retrievalLog: cfg.RetrievalLog,
		store:        cfg.Store,
		schemas:      newSchemaSet(),
		calls:        make(map[Intent]int),
		onProgress:   cfg.OnProgress,
		onChunk:      cfg.OnChunk,
		tracer:       cfg.Tracer,
		logger:       cfg.Logger,
	}
	o.classifier = NewClassifier(cfg.Gateway, cfg.Bus.Agents, cfg.Tracer, cfg.Logger)
	o.handlers = map[Intent]handler{
		IntentAnalyze:              o.analyze,
		IntentEnhance:              o.enhance,
		IntentDiscoverRequirements: o.discoverRequirements,
		IntentCheckCompliance:      o.checkCompliance,
		IntentGenerateOutline:      o.generateOutline,
		IntentDraftSection:         o.draftSection,
		IntentQueryAgent:           o.queryAgent,
		IntentShowLog:              o.showLog,
		IntentGeneral:              o.general,
	}
	return o, nil
}

// turnContext is what a handler sees of the running turn.
type turnContext struct {
	turn    *session.Turn
	message string
	class   Classification
	resp    *Response
}

func (tc *turnContext) state() *session.State {
	return tc.turn.State()
}

// Process runs one user turn. uploads are merged before classification.
//
// Failures are reported in the Response: Failed is set and the session is
// unchanged. The only error returned is the context's.
func (o *Orchestrator) Process(ctx context.Context, message string, uploads []ingest.File) (*Response, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx = session.WithSessionID(ctx, o.store.ID())
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanOrchestratorTurn)
	defer o.tracer.EndSpan(span)

	turn := o.store.Begin()
	resp := &Response{}
	busMark, logMark := o.bus.Len(), o.retrievalLog.Len()

	if err := o.mergeUploads(ctx, turn, uploads, resp); err != nil {
		turn.Discard()
		return nil, fmt.Errorf("process turn: %w", err)
	}

	message = strings.TrimSpace(message)
	if message == "" {
		resp.Text = uploadAck(turn.State(), len(uploads))
		resp.SuggestedNext = IntentAnalyze
		turn.AppendTurn(session.RoleAssistant, resp.Text)
		return o.commit(turn, resp)
	}

	class, err := o.classifier.Classify(ctx, turn.State(), message)
	if err != nil {
		span.RecordError(err)
		return o.failTurn(ctx, turn, resp, err)
	}
	resp.Intent = class.Intent
	resp.Classification = class
	span.SetAttribute(observability.AttrIntent, string(class.Intent))
	o.tracer.RecordMetric(observability.MetricIntents, 1, map[string]string{"intent": string(class.Intent)})

	tc := &turnContext{turn: turn, message: message, class: class, resp: resp}
	if err := o.dispatch(ctx, tc); err != nil {
		span.RecordError(err)
		return o.failTurn(ctx, turn, resp, err)
	}

	o.collect(turn, resp, busMark, logMark)
	turn.AppendTurn(session.RoleUser, message)
	turn.AppendTurn(session.RoleAssistant, resp.Text)
	return o.commit(turn, resp)
}

func (o *Orchestrator) dispatch(ctx context.Context, tc *turnContext) error {
	intent := tc.class.Intent
	h, ok := o.handlers[intent]
	if !ok {
		return fmt.Errorf("dispatch: %w: %w: %q", agent.ErrParseFailure, ErrUnknownIntent, intent)
	}
	o.calls[intent]++

	ctx, span := o.tracer.StartSpan(ctx, observability.SpanOrchestratorHandler,
		observability.WithAttribute(observability.AttrIntent, string(intent)))
	defer o.tracer.EndSpan(span)

	o.logger.Debug("dispatching turn",
		zap.String("intent", string(intent)),
		zap.String("target", tc.class.Target),
		zap.Float64("confidence", tc.class.Confidence))

	if err := h(ctx, tc); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s: %w", intent, err)
	}
	return nil
}

func (o *Orchestrator) commit(turn *session.Turn, resp *Response) (*Response, error) {
	if err := turn.Commit(); err != nil {
		return nil, fmt.Errorf("commit turn: %w", err)
	}
	resp.Task = Track(o.store.State())
	if resp.SuggestedNext == "" && !resp.Failed {
		if next, ok := resp.Task.Next(); ok {
			resp.SuggestedNext = next.Intent
		}
	}
	return resp, nil
}

// failTurn discards the draft and explains the failure.
func (o *Orchestrator) failTurn(ctx context.Context, turn *session.Turn, resp *Response, err error) (*Response, error) {
	turn.Discard()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("process turn: %w", ctxErr)
	}

	resp.Failed = true
	switch {
	case llm.IsTransient(err):
		resp.Text = retryText
		o.logger.Warn("turn failed on transient model errors", zap.Error(err))
	case errors.Is(err, agent.ErrParseFailure):
		resp.Text = unclearText
		o.logger.Warn("turn could not be classified", zap.Error(err))
	default:
		resp.Text = failText
		o.logger.Error("turn failed", zap.String("intent", string(resp.Intent)), zap.Error(err))
	}
	resp.Task = Track(o.store.State())
	return resp, nil
}

// mergeUploads adds new uploads to the draft, summarizes and indexes them.
// Only cancellation aborts; every other problem becomes a progress step.
func (o *Orchestrator) mergeUploads(ctx context.Context, turn *session.Turn, uploads []ingest.File, resp *Response) error {
	for _, f := range uploads {
		text, err := ingest.Extract(f)
		if err != nil {
			o.logger.Warn("upload rejected", zap.String("file", f.Name), zap.Error(err))
			o.step(resp, ProgressStep{Name: "read " + f.Name, Status: StepFailed, Detail: err.Error()})
			continue
		}
		if !turn.AddDocument(f.Name, text) {
			o.step(resp, ProgressStep{Name: "read " + f.Name, Status: StepSkipped, Detail: "already uploaded"})
			continue
		}
		o.step(resp, ProgressStep{Name: "read " + f.Name, Status: StepDone})

		summary, err := o.summarize(ctx, f.Name, text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warn("auto-summary failed", zap.String("file", f.Name), zap.Error(err))
			o.step(resp, ProgressStep{Name: "summarize " + f.Name, Status: StepFailed, Detail: "summary unavailable"})
		} else {
			turn.SetDocumentSummary(f.Name, summary)
			o.step(resp, ProgressStep{Name: "summarize " + f.Name, Status: StepDone})
		}

		if o.retriever == nil {
			continue
		}
		if err := o.retriever.Index(ctx, retrieval.CorpusUploaded, f.Name, text); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warn("indexing upload failed", zap.String("file", f.Name), zap.Error(err))
			o.step(resp, ProgressStep{Name: "index " + f.Name, Status: StepFailed, Detail: err.Error()})
			continue
		}
		o.step(resp, ProgressStep{Name: "index " + f.Name, Status: StepDone})
	}
	return nil
}

func (o *Orchestrator) summarize(ctx context.Context, name, text string) (string, error) {
	text = session.Truncate(text, summaryInputLimit)
	resp, err := o.gateway.Call(ctx, &llm.CallRequest{
		Caller:      CallerSummarizer,
		System:      summarizerPrompt,
		Prompt:      fmt.Sprintf("Document: %s\n\n%s", name, text),
		Temperature: types.Float64(0.1),
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// collect mirrors the bus and retrieval traffic of this turn into the draft
// and the response.
func (o *Orchestrator) collect(turn *session.Turn, resp *Response, busMark, logMark int) {
	for _, msg := range o.bus.Since(busMark) {
		turn.AppendAgentQuery(session.AgentQuery{
			ID:        msg.ID,
			From:      msg.From,
			To:        msg.To,
			Query:     msg.Query,
			Response:  msg.Response,
			Failed:    msg.Failed,
			Timestamp: msg.Timestamp,
		})
		resp.NewAgentMessages = append(resp.NewAgentMessages, msg)
	}

	incomplete := false
	for _, q := range o.retrievalLog.Since(logMark) {
		turn.AppendRetrieval(q)
		resp.NewRetrievals = append(resp.NewRetrievals, q)
		resp.addSources(q.Sources...)
		if q.Failed() {
			incomplete = true
		}
	}
	if incomplete {
		resp.Text = strings.TrimRight(resp.Text, "\n") + "\n\n" + incompleteNote
	}
}

func (o *Orchestrator) step(resp *Response, s ProgressStep) {
	resp.Progress = append(resp.Progress, s)
	if o.onProgress != nil {
		o.onProgress(s)
	}
}

// Reset clears the session, the bus log and the retrieval log. Agent
// registrations and indexed corpora stay.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.store.Reset()
	o.bus.Reset()
	o.retrievalLog.Reset()
	o.calls = make(map[Intent]int)
	o.logger.Info("session reset", zap.String("session_id", o.store.ID()))
}

// State returns the committed session state.
func (o *Orchestrator) State() *session.State {
	return o.store.State()
}

// Task returns the workflow position of the committed state.
func (o *Orchestrator) Task() TaskState {
	return Track(o.store.State())
}

// Bus returns the agent message bus.
func (o *Orchestrator) Bus() *communication.Bus {
	return o.bus
}

// HandlerCalls reports how often the handler for intent was dispatched.
func (o *Orchestrator) HandlerCalls(intent Intent) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[intent]
}

func uploadAck(st *session.State, n int) string {
	if n == 0 {
		return "Upload a deal brief or ask me something about the deal."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Received %d file(s). %d document(s) in this session.", n, len(st.Documents))
	if pending := len(st.PendingDocuments()); pending > 0 {
		fmt.Fprintf(&b, " %d waiting for analysis.", pending)
	}
	return b.String()
}
