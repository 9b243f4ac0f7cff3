package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"candidate-search/internal/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "ja******om", MaskPII("jane@x.com"))
}

func TestSafeAttributeValue(t *testing.T) {
	assert.Equal(t, MaskPII("jane@x.com"), SafeAttributeValue("Email", "jane@x.com", 50))
	assert.Equal(t, MaskPII("Jane Doe"), SafeAttributeValue("Candidate Name", "Jane Doe", 50))
	assert.Equal(t, "Go", SafeAttributeValue("skillset", "Go", 50))

	long := strings.Repeat("a", 100)
	assert.Len(t, []rune(SafeAttributeValue("summary", long, 21)), 21)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abc", TruncateString("abcdef", 3))
	assert.Equal(t, "abc...xyz", TruncateString("abcdefghijklmnopqrstuvwxyz", 9))
	assert.LessOrEqual(t, len([]rune(SafeModelReply(strings.Repeat("x", 1000)))), MaxReplyLength)
}

func TestErrorTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeExternal, ErrorTypeOf(types.NewTransportError("a", "embed", errors.New("x"))))
	assert.Equal(t, ErrorTypeDB, ErrorTypeOf(types.NewStorageError("a", "insert", errors.New("x"))))
	assert.Equal(t, ErrorTypeValidation, ErrorTypeOf(types.ErrEmptyQuery))
	assert.Equal(t, ErrorTypeTimeout, ErrorTypeOf(context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeInternal, ErrorTypeOf(errors.New("boom")))
}

func TestInitProvider_NoEndpoint(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), ProviderConfig{}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
