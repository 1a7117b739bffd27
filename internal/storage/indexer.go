package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

const reportIndexMapping = `{
  "mappings": {
    "properties": {
      "id":                   {"type": "keyword"},
      "domain":               {"type": "keyword"},
      "industry":             {"type": "keyword"},
      "status":               {"type": "keyword"},
      "started_at":           {"type": "date"},
      "completed_at":         {"type": "date"},
      "duration_seconds":     {"type": "float"},
      "total_revenue_impact": {"type": "float"},
      "per_category_scores":  {"type": "object"},
      "categories":           {"type": "keyword"},
      "issue_count":          {"type": "integer"},
      "critical_issues":      {"type": "integer"},
      "issue_titles":         {"type": "text"}
    }
  }
}`

// ReportDocument is the searchable summary of a report.
type ReportDocument struct {
	ID                 string         `json:"id"`
	Domain             string         `json:"domain"`
	Industry           string         `json:"industry,omitempty"`
	Status             string         `json:"status"`
	StartedAt          time.Time      `json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	DurationSeconds    float64        `json:"duration_seconds"`
	TotalRevenueImpact float64        `json:"total_revenue_impact"`
	PerCategoryScores  map[string]int `json:"per_category_scores"`
	Categories         []string       `json:"categories"`
	IssueCount         int            `json:"issue_count"`
	CriticalIssues     int            `json:"critical_issues"`
	IssueTitles        []string       `json:"issue_titles"`
}

// NewReportDocument summarizes report for indexing.
func NewReportDocument(report *domain.AnalysisReport) ReportDocument {
	doc := ReportDocument{
		ID:                 report.ID,
		Domain:             report.Domain,
		Industry:           report.Industry,
		Status:             string(report.Status),
		StartedAt:          report.StartedAt,
		CompletedAt:        report.CompletedAt,
		DurationSeconds:    report.DurationSeconds,
		TotalRevenueImpact: report.TotalRevenueImpact,
		PerCategoryScores:  report.PerCategoryScores,
		IssueCount:         len(report.IssuesFound),
		Categories:         make([]string, 0, len(report.PerCategoryScores)),
		IssueTitles:        make([]string, 0, len(report.IssuesFound)),
	}
	for c := range report.PerCategoryScores {
		doc.Categories = append(doc.Categories, c)
	}
	sort.Strings(doc.Categories)
	for _, issue := range report.IssuesFound {
		doc.IssueTitles = append(doc.IssueTitles, issue.Title)
		if issue.Severity == domain.SeverityCritical {
			doc.CriticalIssues++
		}
	}
	return doc
}

// Indexer writes report summaries to Elasticsearch.
type Indexer struct {
	client *es.Client
	index  string
	logger infralogger.Logger
}

// NewIndexer creates an indexer writing to index.
func NewIndexer(client *es.Client, index string, log infralogger.Logger) *Indexer {
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Indexer{client: client, index: index, logger: log}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", i.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithBody(strings.NewReader(reportIndexMapping)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index %s: %s", i.index, res.String())
	}
	i.logger.Info("Created report index", infralogger.String("index", i.index))
	return nil
}

// SaveReport indexes the report summary under the report id.
func (i *Indexer) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	docBytes, err := json.Marshal(NewReportDocument(report))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(docBytes),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(report.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index report %s: %w", report.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing report %s: %s", report.ID, res.String())
	}
	return nil
}
