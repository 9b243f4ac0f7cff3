package tracing

import (
	"context"
	"errors"

	"candidate-search/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType span 上的错误分类
type ErrorType string

const (
	ErrorTypeDB         ErrorType = "db"
	ErrorTypeRedis      ErrorType = "redis"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
	// ErrorTypeExternal 模型与向量化服务
	ErrorTypeExternal ErrorType = "external_system"
	ErrorTypeTimeout  ErrorType = "timeout"
)

// ErrorTypeOf 按处理错误的类别推断 span 上的错误类型
func ErrorTypeOf(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	switch types.KindOf(err) {
	case types.KindTransport:
		return ErrorTypeExternal
	case types.KindStorage:
		return ErrorTypeDB
	case types.KindEmptyQuery, types.KindEmptySource, types.KindConfig, types.KindDimensionMismatch:
		return ErrorTypeValidation
	}
	return ErrorTypeInternal
}

// RecordError 在 span 上记录错误，能识别出处理错误类别时额外写入 error.kind
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}

	msg := TruncateString(err.Error(), DefaultMaxLength)
	span.RecordError(err)
	attrs := []attribute.KeyValue{
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", msg),
	}
	if kind := types.KindOf(err); kind != types.KindUnknown {
		attrs = append(attrs, attribute.String("error.kind", string(kind)))
	}
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, msg)
}
