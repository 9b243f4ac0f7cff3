package types

// ExtractOutcome 结构化抽取的结果类型
type ExtractOutcome string

const (
	OutcomeParsed    ExtractOutcome = "parsed"    // 回复直接解析成功
	OutcomeRepaired  ExtractOutcome = "repaired"  // 补全大括号后解析成功
	OutcomeEmpty     ExtractOutcome = "empty"     // 回复清理后为空
	OutcomeMalformed ExtractOutcome = "malformed" // 修复后仍无法解析，降级为空字段
)

// Degraded 抽取结果是否退化为占位字段
func (o ExtractOutcome) Degraded() bool {
	return o == OutcomeEmpty || o == OutcomeMalformed
}

// ExtractionResult 一次结构化抽取的结果。
// 降级时 Fields 为空集合，ParseErr 记录解析失败原因，调用方可据此统计而不必解析日志。
type ExtractionResult struct {
	Fields   Fields
	Outcome  ExtractOutcome
	Reply    string // 清理后的模型回复
	ParseErr error
}
