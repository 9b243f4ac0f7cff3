package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"candidate-search/internal/config"
	"candidate-search/internal/types"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	results map[string]*types.QueryResult
	err     error
	queries []string
}

func (s *stubSearcher) Search(ctx context.Context, query string) (*types.QueryResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

func init() {
	color.NoColor = true
}

func TestREPL_PrintsMatchAndStopsOnEmptyLine(t *testing.T) {
	searcher := &stubSearcher{results: map[string]*types.QueryResult{
		"golang developer": {CandidateName: "Bob", Email: "bob@example.com", Skillset: `["Go"]`, Score: 0.5},
	}}
	var out bytes.Buffer

	err := runREPL(context.Background(), searcher, strings.NewReader("golang developer\nunknown\n\nnever read\n"), &out, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"golang developer", "unknown"}, searcher.queries)
	text := out.String()
	assert.Contains(t, text, "Candidate Name: Bob\n")
	assert.Contains(t, text, "email: bob@example.com\n")
	assert.Contains(t, text, "Skillset: [\"Go\"]\n")
	assert.Contains(t, text, "Score: 0.5\n")
	assert.Contains(t, text, "No matching candidate found.\n")
	assert.Equal(t, 3, strings.Count(text, searchPrompt))
}

func TestREPL_ErrorDoesNotExit(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("store unavailable")}
	var out bytes.Buffer

	err := runREPL(context.Background(), searcher, strings.NewReader("a\nb\n"), &out, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, searcher.queries, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "Search failed: store unavailable"))
}

func TestREPL_DimensionMismatchStopsLoop(t *testing.T) {
	searcher := &stubSearcher{err: types.NewDimensionError("query", 4, 1536)}
	var out bytes.Buffer

	err := runREPL(context.Background(), searcher, strings.NewReader("a\nb\nc\n"), &out, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	assert.Len(t, searcher.queries, 1)
	assert.Equal(t, 1, strings.Count(out.String(), "Search failed:"))
}

func TestREPL_WhitespaceLineExits(t *testing.T) {
	searcher := &stubSearcher{}
	err := runREPL(context.Background(), searcher, strings.NewReader("   \nquery\n"), &bytes.Buffer{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, searcher.queries)
}

func TestREPL_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	searcher := &stubSearcher{}
	require.NoError(t, runREPL(ctx, searcher, strings.NewReader("query\n"), &bytes.Buffer{}, zerolog.Nop()))
	assert.Empty(t, searcher.queries)
}

func TestWarnMetric(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	cfg := config.DefaultConfig()
	warnMetric(cfg, log)
	assert.Contains(t, buf.String(), "text-embedding-3-small")

	buf.Reset()
	cfg.Store.Metric = config.MetricCosine
	warnMetric(cfg, log)
	assert.Empty(t, buf.String())
}
