package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"file or folder name to look for; a fuzzy subsequence works"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 15, max 50"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Query   string               `json:"query"`
	Math    string               `json:"math,omitempty" jsonschema:"calculator result when the query is arithmetic"`
	Results []SearchResultOutput `json:"results" jsonschema:"ranked results, best first"`
}

// SearchResultOutput is a single ranked entry.
type SearchResultOutput struct {
	Filename     string  `json:"filename"`
	Filepath     string  `json:"filepath" jsonschema:"absolute path of the entry"`
	FileType     string  `json:"file_type" jsonschema:"app, shortcut, folder, document, image, code or other"`
	MimeType     string  `json:"mime_type,omitempty"`
	FileSize     int64   `json:"file_size"`
	ModifiedAt   int64   `json:"modified_at" jsonschema:"epoch seconds"`
	ClickCount   int64   `json:"click_count"`
	Score        float64 `json:"score"`
	MatchType    string  `json:"match_type" jsonschema:"exact, prefix, substring, fuzzy or path"`
	MatchedRunes []int   `json:"matched_indices,omitempty" jsonschema:"rune offsets into filename that matched"`
}

// EvalMathInput defines the input schema for the eval_math tool.
type EvalMathInput struct {
	Expression string `json:"expression" jsonschema:"arithmetic using + - * / % ^ and parentheses"`
}

// EvalMathOutput defines the output schema for the eval_math tool.
type EvalMathOutput struct {
	Expression string `json:"expression"`
	Result     string `json:"result,omitempty"`
	OK         bool   `json:"ok" jsonschema:"false when the expression is not arithmetic or divides by zero"`
}

// PathInput is the input schema for launch_file and open_containing_folder.
type PathInput struct {
	Filepath string `json:"filepath" jsonschema:"absolute path, usually taken from a search result"`
}

// PathOutput acknowledges a launch or reveal.
type PathOutput struct {
	Filepath string `json:"filepath"`
	Action   string `json:"action"`
}

// RebuildIndexInput defines the input schema for rebuild_index (no parameters).
type RebuildIndexInput struct{}

// RebuildIndexOutput reports a completed full pass.
type RebuildIndexOutput struct {
	Indexed  int    `json:"indexed"`
	Duration string `json:"duration" jsonschema:"wall time of the pass, e.g. 3.2s"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Count                int64             `json:"count"`
	Indexing             bool              `json:"indexing"`
	LastFullIndex        string            `json:"last_full_index,omitempty" jsonschema:"RFC 3339, empty if never run"`
	LastIncrementalIndex string            `json:"last_incremental_index,omitempty" jsonschema:"RFC 3339, empty if never run"`
	DBPath               string            `json:"db_path,omitempty"`
	Progress             *IndexingProgress `json:"progress,omitempty"`
}

// IndexingProgress describes the current or last index pass.
type IndexingProgress struct {
	Status         string `json:"status"`          // "idle", "indexing", "ready" or "error"
	Stage          string `json:"stage,omitempty"` // "scanning", "reconciling" or "writing"
	RunID          string `json:"run_id,omitempty"`
	FilesProcessed int    `json:"files_processed"`
	FilesRemoved   int    `json:"files_removed"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// QueryMetricsOutput is the JSON shape of the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	QueryTypeCounts     map[string]int64    `json:"query_type_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary summarizes the session.
type QueryMetricsSummary struct {
	TotalQueries     int64   `json:"total_queries"`
	TimePeriod       string  `json:"time_period"`
	ZeroResultPct    float64 `json:"zero_result_pct"`
	ExactRepeatCount int64   `json:"exact_repeat_count"`
}

// QueryTermCount is a term and how often it was searched.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}
