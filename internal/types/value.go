package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ValueKind 模型回复中取值的形态
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindList
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// ScalarType 标量的原始JSON类型，序列化时据此还原
type ScalarType int

const (
	ScalarString ScalarType = iota
	ScalarNumber
	ScalarBool
	ScalarNull
)

// Value 模型回复中的无模式取值：标量、有序列表或对象
type Value struct {
	Kind   ValueKind
	Scalar ScalarType
	Text   string // 标量的文本；数字保留原始字面量
	List   []Value
	Object map[string]Value
}

// StringValue 构造字符串标量
func StringValue(s string) Value {
	return Value{Kind: KindScalar, Scalar: ScalarString, Text: s}
}

// ListValue 构造列表
func ListValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindList, List: items}
}

// ObjectValue 构造对象
func ObjectValue(obj map[string]Value) Value {
	if obj == nil {
		obj = map[string]Value{}
	}
	return Value{Kind: KindObject, Object: obj}
}

// IsNull 是否为JSON null
func (v Value) IsNull() bool {
	return v.Kind == KindScalar && v.Scalar == ScalarNull
}

// String 标量返回其文本，列表和对象返回紧凑JSON
func (v Value) String() string {
	if v.Kind == KindScalar {
		if v.Scalar == ScalarNull {
			return ""
		}
		return v.Text
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// FromAny 将 json.Decoder(UseNumber) 解出的值转换为 Value
func FromAny(raw interface{}) Value {
	switch val := raw.(type) {
	case nil:
		return Value{Kind: KindScalar, Scalar: ScalarNull}
	case string:
		return StringValue(val)
	case json.Number:
		return Value{Kind: KindScalar, Scalar: ScalarNumber, Text: val.String()}
	case float64:
		return Value{Kind: KindScalar, Scalar: ScalarNumber, Text: strconv.FormatFloat(val, 'f', -1, 64)}
	case bool:
		return Value{Kind: KindScalar, Scalar: ScalarBool, Text: strconv.FormatBool(val)}
	case []interface{}:
		items := make([]Value, 0, len(val))
		for _, item := range val {
			items = append(items, FromAny(item))
		}
		return ListValue(items...)
	case map[string]interface{}:
		obj := make(map[string]Value, len(val))
		for k, item := range val {
			obj[k] = FromAny(item)
		}
		return ObjectValue(obj)
	default:
		return StringValue(fmt.Sprint(val))
	}
}

// MarshalJSON 按原始JSON类型输出
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		keys := make([]string, 0, len(v.Object))
		for k := range v.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			b, err := v.Object[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}

	switch v.Scalar {
	case ScalarNull:
		return []byte("null"), nil
	case ScalarNumber, ScalarBool:
		return []byte(v.Text), nil
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON 保留数字的原始字面量
func (v *Value) UnmarshalJSON(data []byte) error {
	raw, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// DecodeJSON 使用 UseNumber 解码，避免大整数(如电话号码)被转成浮点
func DecodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	// 只允许一个顶层JSON值
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("JSON之后存在多余内容")
	}
	return raw, nil
}

// Equal 深度比较两个取值
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Object) != len(o.Object) {
			return false
		}
		for k, item := range v.Object {
			other, ok := o.Object[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	default:
		return v.Scalar == o.Scalar && v.Text == o.Text
	}
}
