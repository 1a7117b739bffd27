package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/conversation"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/nlp"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
)

type reportSource struct {
	reports map[string]*domain.AnalysisReport
	err     error
}

func (s reportSource) Report(_ context.Context, id string) (*domain.AnalysisReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orchestrator.ErrRunNotFound, id)
	}
	return r, nil
}

type capturingResponder struct {
	mu    sync.Mutex
	calls []nlp.RequestContext
	inner conversation.Responder
}

func (c *capturingResponder) Respond(ctx context.Context, query string, report *domain.AnalysisReport, rc nlp.RequestContext) nlp.Response {
	c.mu.Lock()
	c.calls = append(c.calls, rc)
	c.mu.Unlock()
	return c.inner.Respond(ctx, query, report, rc)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sse.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev sse.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type intentCounter map[string]int

func (c intentCounter) RecordIntent(intent string) { c[intent]++ }

func sampleReport() *domain.AnalysisReport {
	return &domain.AnalysisReport{
		ID:                 "run-1",
		Domain:             "example.com",
		Status:             domain.ReportStatusPartial,
		PerCategoryScores:  map[string]int{"pricing": 40, "forms": 70, "seo": 90},
		TotalRevenueImpact: 5200,
		IssuesFound: []domain.Issue{
			{
				Category: "pricing", Severity: domain.SeverityHigh, Title: "Pricing is hard to find",
				RevenueImpactMonthly: 3000, FixDifficulty: domain.DifficultyEasy,
				FixDescription: "Add a Pricing link to the main navigation.",
			},
			{
				Category: "forms", Severity: domain.SeverityMedium, Title: "Form asks for too many fields",
				RevenueImpactMonthly: 2000, FixDifficulty: domain.DifficultyMedium,
				FixDescription: "Cut the form to name and email.",
			},
			{
				Category: "seo", Severity: domain.SeverityLow, Title: "No canonical URL",
				RevenueImpactMonthly: 200, FixDifficulty: domain.DifficultyEasy,
			},
		},
		QuickWins: []domain.QuickWin{{Title: "Add Pricing to the navigation", ImplementationTime: "1 hour", RevenueImpactMonthly: 3000}},
	}
}

func templateOnly() *nlp.Router {
	return nlp.NewRouter(nlp.Config{}, nil, infralogger.NewNop(), nlp.Tiers{})
}

func TestClassifyIntent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  domain.Intent
	}{
		{"what about pricing?", domain.IntentPricing},
		{"  WHAT ABOUT PRICING?  ", domain.IntentPricing},
		{"How much does the Pro plan cost", domain.IntentPricing},
		{"Why is my contact form converting badly?", domain.IntentForms},
		{"Should I fix the form before the pricing page?", domain.IntentForms},
		{"What are the quick wins?", domain.IntentQuickWins},
		{"where should I start with pricing", domain.IntentPricing},
		{"Is my site ready for ChatGPT?", domain.IntentAISearch},
		{"do I need an llms.txt file", domain.IntentAISearch},
		{"Qu'en est-il du prix? Pricing élevé", domain.IntentPricing},
		{"Tell me about the information architecture", domain.IntentGeneral},
		{"platform performance", domain.IntentGeneral},
		{"", domain.IntentGeneral},
		{"how did we do overall", domain.IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, conversation.ClassifyIntent(tt.query))
		})
	}
}

func TestIntentClassifier_CustomRulesKeepOrder(t *testing.T) {
	t.Parallel()

	c := conversation.NewIntentClassifier([]conversation.IntentRule{
		{Intent: domain.IntentQuickWins, Phrases: []string{"fix"}},
		{Intent: domain.IntentForms, Phrases: []string{"form", "fix"}},
	})
	assert.Equal(t, domain.IntentQuickWins, c.Classify("fix my form"))
	assert.Equal(t, domain.IntentForms, c.Classify("my Fórm"))
	assert.Equal(t, domain.IntentGeneral, c.Classify("hello"))
}

func TestHandleFollowUp_PricingReferencesIssue(t *testing.T) {
	t.Parallel()

	responder := &capturingResponder{inner: templateOnly()}
	counter := intentCounter{}
	h := conversation.NewHandler(reportSource{reports: map[string]*domain.AnalysisReport{"run-1": sampleReport()}},
		responder, infralogger.NewNop(), conversation.WithIntentRecorder(counter))

	resp := h.HandleFollowUp(context.Background(), "what about pricing?", "run-1", "user-1")

	assert.Equal(t, domain.IntentPricing, resp.Intent)
	assert.Equal(t, nlp.LevelTemplate, resp.Tier)
	assert.Equal(t, "run-1", resp.AnalysisID)
	assert.Contains(t, resp.Text, "Pricing is hard to find")
	assert.Contains(t, resp.Text, "Add a Pricing link to the main navigation.")
	assert.Equal(t, []string{"Pricing is hard to find"}, resp.ReferencedIssues)
	assert.False(t, resp.NotAnalyzed)
	assert.Nil(t, resp.Error)
	assert.Equal(t, 1, counter["pricing"])

	require.Len(t, responder.calls, 1)
	rc := responder.calls[0]
	assert.Equal(t, "user-1", rc.Identity)
	assert.Equal(t, "pricing", rc.Slice.Category)
	require.Len(t, rc.Slice.Issues, 1)
	assert.Equal(t, "pricing", rc.Slice.Issues[0].Category)
}

func TestHandleFollowUp_Slices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query      string
		wantTitles []string
		wantWins   int
	}{
		{query: "help with my forms", wantTitles: []string{"Form asks for too many fields"}},
		{query: "give me quick wins", wantTitles: []string{"Pricing is hard to find", "No canonical URL"}, wantWins: 1},
		{query: "is my site ready for AI search?", wantTitles: nil},
		{query: "summarize", wantTitles: []string{"Pricing is hard to find", "Form asks for too many fields", "No canonical URL"}, wantWins: 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()

			responder := &capturingResponder{inner: templateOnly()}
			h := conversation.NewHandler(reportSource{reports: map[string]*domain.AnalysisReport{"run-1": sampleReport()}},
				responder, infralogger.NewNop())

			resp := h.HandleFollowUp(context.Background(), tt.query, "run-1", "")
			require.Nil(t, resp.Error)
			require.Len(t, responder.calls, 1)

			var titles []string
			for _, issue := range responder.calls[0].Slice.Issues {
				titles = append(titles, issue.Title)
			}
			assert.Equal(t, tt.wantTitles, titles)
			assert.Len(t, responder.calls[0].Slice.QuickWins, tt.wantWins)
			assert.NotEmpty(t, resp.Text)
		})
	}
}

func TestHandleFollowUp_UnresolvedReports(t *testing.T) {
	t.Parallel()

	running := sampleReport()
	running.ID, running.Status = "run-2", domain.ReportStatusAnalyzing
	failed := sampleReport()
	failed.ID, failed.Status = "run-3", domain.ReportStatusFailed
	source := reportSource{reports: map[string]*domain.AnalysisReport{"run-2": running, "run-3": failed}}

	tests := []struct {
		name        string
		source      conversation.ReportSource
		reportID    string
		code        string
		notAnalyzed bool
		notFound    bool
	}{
		{name: "no report id", source: source, reportID: "", code: domain.ErrorCodeNotAnalyzed, notAnalyzed: true},
		{name: "unknown id", source: source, reportID: "missing", code: domain.ErrorCodeReportNotFound, notFound: true},
		{name: "store miss", source: reportSource{err: domain.ErrReportNotFound}, reportID: "x", code: domain.ErrorCodeReportNotFound, notFound: true},
		{name: "still running", source: source, reportID: "run-2", code: domain.ErrorCodeNotAnalyzed, notAnalyzed: true},
		{name: "failed run", source: source, reportID: "run-3", code: domain.ErrorCodeNotAnalyzed, notAnalyzed: true},
		{name: "store outage", source: reportSource{err: errors.New("connection refused")}, reportID: "x", code: domain.ErrorCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			responder := &capturingResponder{inner: templateOnly()}
			h := conversation.NewHandler(tt.source, responder, infralogger.NewNop())

			resp := h.HandleFollowUp(context.Background(), "what about pricing?", tt.reportID, "")
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.notAnalyzed, resp.NotAnalyzed)
			assert.Equal(t, tt.notFound, resp.NotFound)
			assert.NotEmpty(t, resp.Text)
			assert.Empty(t, resp.Tier)
			assert.Empty(t, responder.calls, "no generation attempt")
		})
	}
}

func TestHandle_PublishesTypingThenChat(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	h := conversation.NewHandler(reportSource{reports: map[string]*domain.AnalysisReport{"run-1": sampleReport()}},
		templateOnly(), infralogger.NewNop(), conversation.WithEventPublisher(pub))

	h.Handle(context.Background(), conversation.Request{Query: "pricing?", ReportID: "run-1", ConversationID: "conv-1"})

	require.Len(t, pub.events, 2)
	assert.Equal(t, string(domain.EventTypeTyping), pub.events[0].Type)
	assert.Equal(t, string(domain.EventTypeChat), pub.events[1].Type)
	for _, ev := range pub.events {
		assert.Equal(t, "conv-1", ev.Topic)
	}

	chat, ok := pub.events[1].Data.(domain.Event)
	require.True(t, ok)
	payload, ok := chat.Payload.(domain.ChatPayload)
	require.True(t, ok)
	assert.Equal(t, domain.IntentPricing, payload.Intent)
	assert.Equal(t, nlp.LevelTemplate, payload.Tier)
	assert.Contains(t, payload.Message, "Pricing is hard to find")
}

func TestHandle_PublishesErrorEnvelope(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	h := conversation.NewHandler(reportSource{}, templateOnly(), infralogger.NewNop(), conversation.WithEventPublisher(pub))

	h.Handle(context.Background(), conversation.Request{Query: "pricing?", ReportID: "gone", ConversationID: "conv-1"})

	require.Len(t, pub.events, 1)
	assert.Equal(t, string(domain.EventTypeError), pub.events[0].Type)
	ev, ok := pub.events[0].Data.(domain.Event)
	require.True(t, ok)
	payload, ok := ev.Payload.(domain.ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, domain.ErrorCodeReportNotFound, payload.Code)
}

func TestHandle_NoConversationNoEvents(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	h := conversation.NewHandler(reportSource{reports: map[string]*domain.AnalysisReport{"run-1": sampleReport()}},
		templateOnly(), infralogger.NewNop(), conversation.WithEventPublisher(pub))

	h.HandleFollowUp(context.Background(), "pricing?", "run-1", "")
	assert.Empty(t, pub.events)
}
