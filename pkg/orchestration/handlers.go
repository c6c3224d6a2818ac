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

package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/agent"
	"github.com/teradata-labs/dealdraft/pkg/communication"
	"github.com/teradata-labs/dealdraft/pkg/jsonrepair"
	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/retrieval"
	"github.com/teradata-labs/dealdraft/pkg/session"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// Memo keys for handlers that skip unchanged inputs.
const (
	memoEnhance         = "enhance"
	memoCompliance      = "check-compliance"
	memoOutline         = "generate-outline"
	memoDraftPrefix     = "draft-section:"
	documentPromptLimit = 12000
)

var generalPrompt = heredoc.Doc(`
	You are the coordinator of a deal drafting team. Answer the user from the
	session context below. If the answer is not in the context, say what is
	missing and which step would produce it. Keep answers short.
`)

// structured runs role and decodes its reply through schema into out. When
// the reply is unusable the raw text becomes the response, StructuredFailed
// is set and ok is false with a nil error.
func structured[T any](ctx context.Context, o *Orchestrator, tc *turnContext, role, prompt string, shape jsonrepair.Shape, schema *outputSchema, out *T) (bool, error) {
	res, err := o.agents[role].RunStructured(ctx, prompt, shape, into(schema, out))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, agent.ErrParseFailure) {
		return false, err
	}

	o.logger.Warn("handler output rejected",
		zap.String("agent", role),
		zap.String("schema", schema.name),
		zap.Error(err))
	tc.resp.StructuredFailed = true
	tc.resp.Text = res.Raw()
	o.step(tc.resp, ProgressStep{Name: schema.name, Status: StepFailed, Detail: "reply did not match the expected format"})
	return false, nil
}

func (o *Orchestrator) analyze(ctx context.Context, tc *turnContext) error {
	st := tc.state()
	if len(st.Documents) == 0 {
		tc.resp.Text = "There is nothing to analyze yet. Upload a deal brief first."
		return nil
	}

	pending := st.PendingDocuments()
	if len(pending) == 0 {
		o.step(tc.resp, ProgressStep{Name: "analyze", Status: StepSkipped, Detail: "all documents already analyzed"})
		tc.resp.Text = "All documents are already analyzed.\n\n" + formatInsights(st.Insights)
		tc.resp.Structured = st.Insights
		return nil
	}

	for _, doc := range pending {
		var insights session.Insights
		ok, err := structured(ctx, o, tc, agent.Analyst, analyzePrompt(doc), jsonrepair.ShapeObject, o.schemas.insights, &insights)
		if err != nil || !ok {
			return err
		}
		tc.turn.SetDocumentInsights(doc.Name, &insights)
		o.step(tc.resp, ProgressStep{Name: "analyze " + doc.Name, Status: StepDone})
	}

	merged := tc.state().Insights
	tc.resp.Text = formatInsights(merged)
	tc.resp.Structured = merged
	return nil
}

func analyzePrompt(doc session.Document) string {
	text := doc.Text
	if len(text) > documentPromptLimit {
		text = session.Truncate(text, documentPromptLimit) + "\n[truncated]"
	}
	return heredoc.Docf(`
		Analyze the document below and extract the deal insights.

		Document: %s
		---
		%s
		---

		Search the documents for any figure you are unsure of. Reply with one
		JSON object with exactly these fields:
		{"deal_type": string, "parties": [string], "loan_amount": number, "currency": string, "term": string, "collateral": string, "key_facts": [string], "risks": [string], "summary": string}
		Use null for anything the material does not state.
	`, doc.Name, text)
}

type enhanceOutput struct {
	Benchmarks []string `json:"benchmarks"`
	Risks      []string `json:"risks"`
	KeyFacts   []string `json:"key_facts"`
	Summary    string   `json:"summary"`
}

func (o *Orchestrator) enhance(ctx context.Context, tc *turnContext) error {
	st := tc.state()
	if st.Insights.IsEmpty() {
		tc.resp.Text = "There are no insights to enhance yet. Analyze the documents first."
		tc.resp.SuggestedNext = IntentAnalyze
		return nil
	}
	if st.Memo(memoEnhance) == st.InsightsFingerprint() {
		o.step(tc.resp, ProgressStep{Name: "enhance", Status: StepSkipped, Detail: "insights unchanged since last enhancement"})
		tc.resp.Text = "The insights are already enhanced.\n\n" + formatInsights(st.Insights)
		tc.resp.Structured = st.Insights
		return nil
	}

	prompt := heredoc.Docf(`
		Deepen these deal insights with market context.

		Current insights:
		%s

		Search the %q corpus for comparable deals and benchmarks, and the
		uploaded documents for anything the insights missed. Reply with one
		JSON object:
		{"benchmarks": [string], "risks": [string], "key_facts": [string], "summary": string}
		List only new risks and key facts. Omit summary if the current one
		still holds.
	`, toJSON(st.Insights), retrieval.CorpusPrecedents)

	var out enhanceOutput
	ok, err := structured(ctx, o, tc, agent.Analyst, prompt, jsonrepair.ShapeObject, o.schemas.enhance, &out)
	if err != nil || !ok {
		return err
	}

	enhanced := st.Insights.Clone()
	enhanced.Benchmarks = appendUnique(enhanced.Benchmarks, out.Benchmarks...)
	enhanced.Risks = appendUnique(enhanced.Risks, out.Risks...)
	enhanced.KeyFacts = appendUnique(enhanced.KeyFacts, out.KeyFacts...)
	if s := strings.TrimSpace(out.Summary); s != "" {
		enhanced.Summary = s
	}
	enhanced.Enhanced = true

	tc.turn.SetInsights(enhanced)
	tc.turn.SetMemo(memoEnhance, enhanced.Fingerprint())
	o.step(tc.resp, ProgressStep{Name: "enhance", Status: StepDone})
	tc.resp.Text = formatInsights(enhanced)
	tc.resp.Structured = enhanced
	return nil
}

func (o *Orchestrator) discoverRequirements(ctx context.Context, tc *turnContext) error {
	st := tc.state()
	fp := st.InsightsFingerprint()
	if fp == "" {
		tc.resp.Text = "Requirements are derived from the deal insights. Analyze the documents first."
		tc.resp.SuggestedNext = IntentAnalyze
		return nil
	}
	if st.RequirementsFrom == fp && len(st.Requirements) > 0 {
		o.step(tc.resp, ProgressStep{Name: "discover requirements", Status: StepSkipped, Detail: "insights unchanged"})
		tc.resp.Text = "Requirements are up to date.\n\n" + formatRequirements(st.Requirements)
		tc.resp.Structured = st.Requirements
		return nil
	}

	prompt := heredoc.Docf(`
		List the documentation and policy requirements this deal must meet.

		Deal insights:
		%s

		Search the %q corpus for the applicable policies. Reply with a JSON
		array of objects:
		[{"id": "R1", "title": string, "description": string, "category": string, "source": string, "mandatory": boolean}]
	`, toJSON(st.Insights), retrieval.CorpusPolicy)

	var reqs []session.Requirement
	ok, err := structured(ctx, o, tc, agent.Compliance, prompt, jsonrepair.ShapeArray, o.schemas.requirements, &reqs)
	if err != nil || !ok {
		return err
	}

	tc.turn.SetRequirements(reqs, fp)
	o.step(tc.resp, ProgressStep{Name: "discover requirements", Status: StepDone, Detail: fmt.Sprintf("%d requirements", len(reqs))})
	tc.resp.Text = formatRequirements(reqs)
	tc.resp.Structured = reqs
	return nil
}

func (o *Orchestrator) checkCompliance(ctx context.Context, tc *turnContext) error {
	st := tc.state()
	if len(st.Requirements) == 0 {
		tc.resp.Text = "There are no requirements to check against yet. Discover requirements first."
		tc.resp.SuggestedNext = IntentDiscoverRequirements
		return nil
	}
	fp := session.Fingerprint([]string{st.RequirementsFingerprint(), st.SectionsFingerprint(), st.InsightsFingerprint()})
	if st.Memo(memoCompliance) == fp && st.Compliance != nil {
		o.step(tc.resp, ProgressStep{Name: "check compliance", Status: StepSkipped, Detail: "nothing changed since the last check"})
		tc.resp.Text = formatCompliance(st.Compliance)
		tc.resp.Structured = st.Compliance
		return nil
	}

	prompt := heredoc.Docf(`
		Check this deal against its requirements.

		Requirements:
		%s

		Deal insights:
		%s

		Drafted sections:
		%s

		Reply with one JSON object:
		{"status": "pass" | "fail" | "partial", "summary": string, "findings": [{"requirement_id": string, "status": "pass" | "fail" | "partial" | "n/a", "detail": string}]}
		Give one finding per requirement.
	`, toJSON(st.Requirements), toJSON(st.Insights), sectionsText(st))

	var result session.ComplianceResult
	ok, err := structured(ctx, o, tc, agent.Compliance, prompt, jsonrepair.ShapeObject, o.schemas.compliance, &result)
	if err != nil || !ok {
		return err
	}

	tc.turn.SetCompliance(&result)
	tc.turn.SetMemo(memoCompliance, fp)
	o.step(tc.resp, ProgressStep{Name: "check compliance", Status: StepDone, Detail: result.Status})
	tc.resp.Text = formatCompliance(&result)
	tc.resp.Structured = &result
	return nil
}

func (o *Orchestrator) generateOutline(ctx context.Context, tc *turnContext) error {
	st := tc.state()
	if st.Insights.IsEmpty() {
		tc.resp.Text = "An outline needs the deal insights. Analyze the documents first."
		tc.resp.SuggestedNext = IntentAnalyze
		return nil
	}
	fp := session.Fingerprint([]string{st.InsightsFingerprint(), st.RequirementsFingerprint()})
	if st.Memo(memoOutline) == fp && len(st.Outline) > 0 {
		o.step(tc.resp, ProgressStep{Name: "generate outline", Status: StepSkipped, Detail: "inputs unchanged"})
		tc.resp.Text = formatOutline(st.Outline)
		tc.resp.Structured = st.Outline
		tc.resp.RequiresApproval = true
		return nil
	}

	prompt := heredoc.Docf(`
		Plan the outline of the credit memo for this deal.

		Deal insights:
		%s

		Requirements the memo must address:
		%s

		Ask the analyst with ask_agent if you need a fact that is not here.
		Reply with a JSON array of sections in order:
		[{"id": "executive_summary", "title": string, "purpose": string}]
	`, toJSON(st.Insights), formatRequirements(st.Requirements))

	var outline []session.OutlineSection
	ok, err := structured(ctx, o, tc, agent.Writer, prompt, jsonrepair.ShapeArray, o.schemas.outline, &outline)
	if err != nil || !ok {
		return err
	}

	tc.turn.SetOutline(outline)
	tc.turn.SetMemo(memoOutline, fp)
	o.step(tc.resp, ProgressStep{Name: "generate outline", Status: StepDone, Detail: fmt.Sprintf("%d sections", len(outline))})
	tc.resp.Text = formatOutline(outline) + "\nApprove the outline or tell me what to change."
	tc.resp.Structured = outline
	tc.resp.RequiresApproval = true
	tc.resp.SuggestedNext = IntentDraftSection
	return nil
}

type draftOutput struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Sources []string `json:"sources"`
}

func (o *Orchestrator) draftSection(ctx context.Context, tc *turnContext) error {
	st := tc.state()
	if len(st.Outline) == 0 {
		tc.resp.Text = "There is no outline yet. Generate an outline first."
		tc.resp.SuggestedNext = IntentGenerateOutline
		return nil
	}

	sec, ok := pickSection(st, tc.class.Target)
	if !ok {
		if tc.class.Target != "" {
			tc.resp.Text = fmt.Sprintf("No outline section matches %q.\n\n%s", tc.class.Target, formatOutline(st.Outline))
		} else {
			tc.resp.Text = "Every section is drafted. Name a section to revise it.\n\n" + formatOutline(st.Outline)
		}
		return nil
	}

	memoKey := memoDraftPrefix + sec.ID
	fp := session.Fingerprint([]string{st.InsightsFingerprint(), sec.ID, tc.message})
	if existing, drafted := st.Section(sec.ID); drafted && st.Memo(memoKey) == fp {
		o.step(tc.resp, ProgressStep{Name: "draft " + sec.ID, Status: StepSkipped, Detail: "same request as the current draft"})
		tc.resp.Text = formatDraft(existing, "")
		tc.resp.Structured = existing
		tc.resp.RequiresApproval = true
		tc.resp.addSources(existing.Sources...)
		return nil
	}

	previous, revising := st.Section(sec.ID)
	prompt := draftPrompt(st, sec, tc.message, previous, revising)

	var out draftOutput
	ok, err := structured(ctx, o, tc, agent.Writer, prompt, jsonrepair.ShapeObject, o.schemas.draft, &out)
	if err != nil || !ok {
		return err
	}

	title := sec.Title
	if title == "" {
		title = out.Title
	}
	stored, prev := tc.turn.PutSection(session.SectionDraft{
		ID:      sec.ID,
		Title:   title,
		Content: strings.TrimSpace(out.Content),
		Sources: out.Sources,
	})
	tc.turn.SetMemo(memoKey, fp)

	note := ""
	if prev != nil {
		note = fmt.Sprintf("Revision %d: %s", stored.Revision, diffRevision(prev.Content, stored.Content).Summary())
	}
	o.step(tc.resp, ProgressStep{Name: "draft " + sec.ID, Status: StepDone, Detail: note})
	tc.resp.Text = formatDraft(stored, note)
	tc.resp.Structured = stored
	tc.resp.RequiresApproval = true
	tc.resp.addSources(stored.Sources...)
	return nil
}

// pickSection resolves target by ID, then by title, then falls back to the
// first undrafted section when target is empty.
func pickSection(st *session.State, target string) (session.OutlineSection, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		for _, sec := range st.Outline {
			if _, drafted := st.Sections[sec.ID]; !drafted {
				return sec, true
			}
		}
		return session.OutlineSection{}, false
	}

	for _, sec := range st.Outline {
		if strings.EqualFold(sec.ID, target) {
			return sec, true
		}
	}
	lower := strings.ToLower(target)
	for _, sec := range st.Outline {
		if strings.EqualFold(sec.Title, target) {
			return sec, true
		}
	}
	for _, sec := range st.Outline {
		if title := strings.ToLower(sec.Title); title != "" && (strings.Contains(title, lower) || strings.Contains(lower, title)) {
			return sec, true
		}
	}
	return session.OutlineSection{}, false
}

func draftPrompt(st *session.State, sec session.OutlineSection, instruction string, previous session.SectionDraft, revising bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft the %q section (id %s) of the credit memo.\n", sec.Title, sec.ID)
	if sec.Purpose != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", sec.Purpose)
	}
	fmt.Fprintf(&b, "\nDeal insights:\n%s\n", toJSON(st.Insights))
	if len(st.Requirements) > 0 {
		fmt.Fprintf(&b, "\nRequirements:\n%s", formatRequirements(st.Requirements))
	}
	if revising {
		fmt.Fprintf(&b, "\nCurrent draft (revision %d):\n%s\n", previous.Revision, previous.Content)
	}
	fmt.Fprintf(&b, "\nUser request: %s\n", instruction)
	b.WriteString(heredoc.Doc(`

		Ask the analyst with ask_agent for any figure you do not have. Reply
		with one JSON object and no other fields:
		{"id": string, "title": string, "content": string, "sources": [string]}
	`))
	return b.String()
}

func (o *Orchestrator) queryAgent(ctx context.Context, tc *turnContext) error {
	target := tc.class.Agent
	if target == "" {
		target = mentionedAgent(tc.message, o.bus.Agents())
	}
	if target == "" {
		tc.resp.Text = "Which agent should I ask? Available: " + strings.Join(o.bus.Agents(), ", ") + "."
		return nil
	}

	msg := o.bus.Query(ctx, communication.SenderUser, target, tc.message, tc.state().Digest())
	if err := ctx.Err(); err != nil {
		return err
	}
	o.step(tc.resp, ProgressStep{Name: "ask " + msg.To, Status: stepStatus(msg.Failed)})
	tc.resp.Text = fmt.Sprintf("%s: %s", msg.To, msg.Response)
	return nil
}

func mentionedAgent(message string, agents []string) string {
	lower := strings.ToLower(message)
	for _, name := range agents {
		if strings.Contains(lower, name) {
			return name
		}
	}
	return ""
}

func (o *Orchestrator) showLog(_ context.Context, tc *turnContext) error {
	st := tc.state()
	if len(st.RetrievalLog) == 0 && len(st.AgentLog) == 0 {
		tc.resp.Text = "No searches or agent messages yet."
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Retrievals (%d):\n", len(st.RetrievalLog))
	for _, q := range st.RetrievalLog {
		corpus := q.Corpus
		if corpus == "" {
			corpus = "all corpora"
		}
		fmt.Fprintf(&b, "- %s searched %s for %q: ", q.Caller, corpus, q.Query)
		if q.Failed() {
			fmt.Fprintf(&b, "error: %s\n", q.Error)
		} else {
			fmt.Fprintf(&b, "%d results\n", q.Results)
		}
	}
	fmt.Fprintf(&b, "\nAgent messages (%d):\n", len(st.AgentLog))
	for _, m := range st.AgentLog {
		fmt.Fprintf(&b, "- %s -> %s: %q => %s\n", m.From, m.To, session.OneLine(m.Query, 120), session.OneLine(m.Response, 160))
	}
	tc.resp.Text = strings.TrimRight(b.String(), "\n")
	return nil
}

func (o *Orchestrator) general(ctx context.Context, tc *turnContext) error {
	st := tc.state()
	req := &llm.CallRequest{
		Caller:      CallerGeneral,
		System:      generalPrompt,
		Temperature: types.Float64(0.3),
		Prompt: fmt.Sprintf("Session context:\n%s\nRecent conversation:\n%s\nUser: %s",
			st.Digest(), st.RecentHistory(0), tc.message),
	}

	var resp *llm.CallResponse
	var err error
	if o.onChunk != nil {
		resp, err = o.gateway.Stream(ctx, req, o.onChunk)
	} else {
		resp, err = o.gateway.Call(ctx, req)
	}
	if err != nil {
		return err
	}
	tc.resp.Text = resp.Text
	return nil
}

func stepStatus(failed bool) string {
	if failed {
		return StepFailed
	}
	return StepDone
}

func toJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, have := range list {
			if strings.EqualFold(have, v) {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}
