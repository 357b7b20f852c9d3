package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	queryMetricsURI = "ancheck://query_metrics"
	statusURI       = "ancheck://status"
)

// registerResources registers the status resource and, when telemetry is
// enabled, the query_metrics resource.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "status",
			URI:         statusURI,
			Description: "Index entry count, indexing state and last pass times",
			MIMEType:    "application/json",
		},
		s.handleStatusResource,
	)

	if s.host.Metrics() == nil {
		return
	}
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         queryMetricsURI,
			Description: "Query pattern telemetry for this session",
			MIMEType:    "application/json",
		},
		s.handleQueryMetricsResource,
	)
}

func (s *Server) handleStatusResource(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return jsonResource(statusURI, out)
}

func (s *Server) handleQueryMetricsResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, ok := s.queryMetrics()
	if !ok {
		return nil, NewInvalidParamsError("query metrics not available")
	}
	return jsonResource(queryMetricsURI, out)
}

// queryMetrics converts the collector snapshot to its output shape.
func (s *Server) queryMetrics() (*QueryMetricsOutput, bool) {
	metrics := s.host.Metrics()
	if metrics == nil {
		return nil, false
	}
	snapshot := metrics.Snapshot()

	output := &QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:     snapshot.TotalQueries,
			TimePeriod:       "session",
			ZeroResultPct:    snapshot.ZeroResultPercentage(),
			ExactRepeatCount: snapshot.ExactRepeatCount,
		},
		QueryTypeCounts:     make(map[string]int64, len(snapshot.QueryTypeCounts)),
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries:   snapshot.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
	}
	for qt, count := range snapshot.QueryTypeCounts {
		output.QueryTypeCounts[string(qt)] = count
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}
	return output, true
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
