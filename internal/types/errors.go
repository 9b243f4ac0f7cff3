package types

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类，调用方据此决定放弃单个文档还是终止整个运行
type ErrorKind string

const (
	KindUnknown           ErrorKind = "unknown"
	KindTransport         ErrorKind = "transport"          // 模型、向量服务或存储不可达
	KindMalformedReply    ErrorKind = "malformed_reply"    // 修复后仍无法解析的模型回复
	KindEmptySource       ErrorKind = "empty_source"       // 没有可导入的文档
	KindDimensionMismatch ErrorKind = "dimension_mismatch" // 查询向量与存储维度不一致
	KindConfig            ErrorKind = "config"             // 配置错误
	KindStorage           ErrorKind = "storage"            // 存储写入或查询失败
	KindEmptyQuery        ErrorKind = "empty_query"        // 空查询
)

// 基础错误
var (
	ErrTransport         = errors.New("外部服务调用失败")
	ErrMalformedReply    = errors.New("模型回复不是有效的JSON")
	ErrEmptySource       = errors.New("未找到任何待处理文档")
	ErrDimensionMismatch = errors.New("向量维度不匹配")
	ErrInvalidConfig     = errors.New("配置无效")
	ErrStorage           = errors.New("记录存储操作失败")
	ErrEmptyQuery        = errors.New("查询内容为空")
)

var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrTransport, KindTransport},
	{ErrMalformedReply, KindMalformedReply},
	{ErrEmptySource, KindEmptySource},
	{ErrDimensionMismatch, KindDimensionMismatch},
	{ErrInvalidConfig, KindConfig},
	{ErrStorage, KindStorage},
	{ErrEmptyQuery, KindEmptyQuery},
}

// ProcessError 带上下文的处理错误
type ProcessError struct {
	Source  string // 文档名或查询标识
	Op      string
	Kind    ErrorKind
	BaseErr error
	Detail  string
	Cause   error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s (操作:%s, 来源:%s)", e.BaseErr, e.Op, e.Source)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 同时暴露基础错误和底层原因，errors.Is 可匹配二者
func (e *ProcessError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BaseErr != nil {
		errs = append(errs, e.BaseErr)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewTransportError 外部调用失败
func NewTransportError(source, op string, cause error) error {
	return &ProcessError{Source: source, Op: op, Kind: KindTransport, BaseErr: ErrTransport, Cause: cause}
}

// NewStorageError 存储操作失败
func NewStorageError(source, op string, cause error) error {
	return &ProcessError{Source: source, Op: op, Kind: KindStorage, BaseErr: ErrStorage, Cause: cause}
}

// NewDimensionError 向量维度与存储配置不一致
func NewDimensionError(source string, got, want int) error {
	return &ProcessError{
		Source:  source,
		Op:      "dimension_check",
		Kind:    KindDimensionMismatch,
		BaseErr: ErrDimensionMismatch,
		Detail:  fmt.Sprintf("向量维度(%d)与配置维度(%d)不匹配", got, want),
	}
}

// NewMalformedReplyError 模型回复修复后仍无法解析
func NewMalformedReplyError(source string, cause error) error {
	return &ProcessError{Source: source, Op: "parse_reply", Kind: KindMalformedReply, BaseErr: ErrMalformedReply, Cause: cause}
}

// KindOf 返回错误的分类
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *ProcessError
	if errors.As(err, &pe) && pe.Kind != "" {
		return pe.Kind
	}
	for _, s := range kindBySentinel {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindUnknown
}

// IsFatal 配置类错误需要终止整个运行，其余错误只影响当前文档或查询
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindDimensionMismatch:
		return true
	default:
		return false
	}
}
