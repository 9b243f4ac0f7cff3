package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"candidate-search/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChatModel 测试用对话模型，记录收到的消息
type mockChatModel struct {
	reply     string
	err       error
	delay     time.Duration
	callCount int
	received  [][]*schema.Message
}

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.callCount++
	m.received = append(m.received, input)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported in mock")
}

func TestNormalizeReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"fenced json", "```json\n{\"Email\":\"a@b.c\"}\n```", `{"Email":"a@b.c"}`},
		{"fenced upper", "  ```JSON\n{}\n```  ", `{}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"bare", `{"a":1}`, `{"a":1}`},
		{"whitespace only", " \n\t ", ""},
		{"fence only", "```json\n```", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeReply(tt.reply))
		})
	}
}

func TestRepairReply(t *testing.T) {
	assert.Equal(t, `{"a":1}`, RepairReply(`{"a":1`))
	assert.Equal(t, `{"a":1}`, RepairReply(`"a":1}`))
	assert.Equal(t, `{"a":1}`, RepairReply(`"a":1`))
	assert.Equal(t, `{"a":1}`, RepairReply(`{"a":1}`), "完整的JSON不应被修改")
}

func TestParseReply_Scenarios(t *testing.T) {
	t.Run("fenced reply parses directly", func(t *testing.T) {
		res := ParseReply("```json\n{\"Candidate Name\":\"Jane Doe\",\"Email\":\"jane@x.com\"}\n```")
		require.Equal(t, types.OutcomeParsed, res.Outcome)
		cols := res.Fields.Columns()
		assert.Equal(t, "Jane Doe", cols.CandidateName)
		assert.Equal(t, "jane@x.com", cols.Email)
		assert.Equal(t, types.NotAvailable, cols.Summary)
	})

	t.Run("truncated reply is repaired", func(t *testing.T) {
		res := ParseReply(`{"Candidate Name":"Bob"`)
		require.Equal(t, types.OutcomeRepaired, res.Outcome)
		assert.Equal(t, "Bob", res.Fields.Text(types.FieldCandidateName))
		assert.Equal(t, types.NotAvailable, res.Fields.Text(types.FieldEmail))
		assert.Nil(t, res.ParseErr)
	})

	t.Run("missing opening brace is repaired", func(t *testing.T) {
		res := ParseReply(`"Email":"x@y.z"}`)
		require.Equal(t, types.OutcomeRepaired, res.Outcome)
		assert.Equal(t, "x@y.z", res.Fields.Text(types.FieldEmail))
	})

	t.Run("empty reply degrades", func(t *testing.T) {
		res := ParseReply("")
		assert.Equal(t, types.OutcomeEmpty, res.Outcome)
		assert.Empty(t, res.Fields)
		assert.True(t, res.Outcome.Degraded())
	})

	t.Run("garbage degrades without error", func(t *testing.T) {
		res := ParseReply("Sorry, I cannot help with that.")
		assert.Equal(t, types.OutcomeMalformed, res.Outcome)
		assert.Empty(t, res.Fields)
		require.Error(t, res.ParseErr)
		assert.Equal(t, types.KindMalformedReply, types.KindOf(res.ParseErr))
		assert.Equal(t, types.NotAvailable, res.Fields.Columns().CandidateName)
	})

	t.Run("array reply is not an object", func(t *testing.T) {
		res := ParseReply(`[{"Candidate Name":"A"}]`)
		assert.Equal(t, types.OutcomeMalformed, res.Outcome)
	})

	t.Run("structured fields keep structure", func(t *testing.T) {
		res := ParseReply(`{"Skillset":["Go","Kafka"],"Projects":[{"name":"ats","stack":["go"]}]}`)
		require.Equal(t, types.OutcomeParsed, res.Outcome)
		assert.Equal(t, types.KindList, res.Fields[types.FieldSkillset].Kind)
		assert.Equal(t, `["Go","Kafka"]`, res.Fields.Text(types.FieldSkillset))
		assert.Equal(t, `[{"name":"ats","stack":["go"]}]`, res.Fields.Text(types.FieldProjects))
	})
}

func TestCandidateExtractor_BuildPrompt(t *testing.T) {
	ex := NewCandidateExtractor(&mockChatModel{})
	prompt := ex.BuildPrompt("RESUME BODY")

	assert.Contains(t, prompt, "return the result as JSON")
	assert.Contains(t, prompt, "1. Candidate Name\n")
	assert.Contains(t, prompt, "11. Programming Languages\n")
	assert.Contains(t, prompt, "13. Summary\n")
	assert.Contains(t, prompt, "RESUME BODY")
	assert.Contains(t, prompt, "'Summary'")
}

func TestCandidateExtractor_Extract(t *testing.T) {
	mock := &mockChatModel{reply: "```json\n{\"Candidate Name\":\"Jane Doe\",\"Email\":\"jane@x.com\"}\n```"}
	ex := NewCandidateExtractor(mock)

	res, err := ex.Extract(context.Background(), "jane.pdf", "Jane Doe resume")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeParsed, res.Outcome)
	assert.Equal(t, "Jane Doe", res.Fields.Text(types.FieldCandidateName))

	require.Equal(t, 1, mock.callCount, "每个文档只调用一次模型")
	require.Len(t, mock.received[0], 1)
	assert.Equal(t, schema.User, mock.received[0][0].Role)
	assert.True(t, strings.Contains(mock.received[0][0].Content, "Jane Doe resume"))
}

func TestCandidateExtractor_MalformedReplyIsNotAnError(t *testing.T) {
	ex := NewCandidateExtractor(&mockChatModel{reply: "not json at all"})

	res, err := ex.Extract(context.Background(), "bad.pdf", "text")
	require.NoError(t, err, "无法解析的回复应降级而不是报错")
	assert.Equal(t, types.OutcomeMalformed, res.Outcome)
}

func TestCandidateExtractor_TransportFailure(t *testing.T) {
	mock := &mockChatModel{err: errors.New("connection refused")}
	ex := NewCandidateExtractor(mock)

	res, err := ex.Extract(context.Background(), "a.pdf", "text")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, types.KindTransport, types.KindOf(err))
	assert.Equal(t, 1, mock.callCount, "不应重试")
}

func TestCandidateExtractor_Timeout(t *testing.T) {
	mock := &mockChatModel{reply: "{}", delay: time.Second}
	ex := NewCandidateExtractor(mock, WithExtractionTimeout(20*time.Millisecond))

	_, err := ex.Extract(context.Background(), "slow.pdf", "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, types.KindTransport, types.KindOf(err))
}

func TestCandidateExtractor_MalformedReplyNamesDocument(t *testing.T) {
	ex := NewCandidateExtractor(&mockChatModel{reply: "not json at all"})

	res, err := ex.Extract(context.Background(), "bad.pdf", "text")
	require.NoError(t, err)
	require.Error(t, res.ParseErr)

	var pe *types.ProcessError
	require.True(t, errors.As(res.ParseErr, &pe))
	assert.Equal(t, "bad.pdf", pe.Source)
	assert.Contains(t, res.ParseErr.Error(), "bad.pdf")
	assert.Equal(t, types.KindMalformedReply, types.KindOf(res.ParseErr))
}
