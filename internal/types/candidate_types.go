package types

import (
	"strings"
)

// NotAvailable 字段缺失时写入数据库的占位值
const NotAvailable = "N/A"

// FieldName 候选人结构化字段名
type FieldName string

const (
	FieldCandidateName        FieldName = "CandidateName"
	FieldEmail                FieldName = "Email"
	FieldContactNumber        FieldName = "ContactNumber"
	FieldAcademics            FieldName = "Academics"
	FieldExperience           FieldName = "Experience"
	FieldCertification        FieldName = "Certification"
	FieldAddress              FieldName = "Address"
	FieldProjects             FieldName = "Projects"
	FieldInternship           FieldName = "Internship"
	FieldSkillset             FieldName = "Skillset"
	FieldProgrammingLanguages FieldName = "ProgrammingLanguages"
	FieldSpokenLanguages      FieldName = "SpokenLanguages"
	FieldSummary              FieldName = "Summary"
)

// FieldSpec 描述一个字段在模型回复、数据库列中的名字
type FieldSpec struct {
	Name       FieldName
	PromptKey  string // 提示词和模型回复中使用的JSON键
	Column     string // docvectors 表中的列名
	Structured bool   // 列表/对象类字段，入库前序列化为JSON文本
}

// CandidateFields 提示词中的字段顺序即为该切片顺序
var CandidateFields = []FieldSpec{
	{Name: FieldCandidateName, PromptKey: "Candidate Name", Column: "candidatename"},
	{Name: FieldEmail, PromptKey: "Email", Column: "email"},
	{Name: FieldContactNumber, PromptKey: "Contact Number", Column: "contactnumber"},
	{Name: FieldAcademics, PromptKey: "Academics", Column: "academics", Structured: true},
	{Name: FieldExperience, PromptKey: "Experience", Column: "experience"},
	{Name: FieldCertification, PromptKey: "Certification", Column: "certification"},
	{Name: FieldAddress, PromptKey: "Address", Column: "address"},
	{Name: FieldProjects, PromptKey: "Projects", Column: "projects", Structured: true},
	{Name: FieldInternship, PromptKey: "Internship", Column: "internship"},
	{Name: FieldSkillset, PromptKey: "Skillset", Column: "skillset", Structured: true},
	{Name: FieldProgrammingLanguages, PromptKey: "Programming Languages", Column: "programming_languages", Structured: true},
	{Name: FieldSpokenLanguages, PromptKey: "Spoken Languages", Column: "spoken_languages"},
	{Name: FieldSummary, PromptKey: "Summary", Column: "summary"},
}

// Fields 字段名到取值的映射，缺失的字段不出现在map中
type Fields map[FieldName]Value

// Text 返回字段入库使用的文本；缺失或为null时返回 "N/A"
func (f Fields) Text(name FieldName) string {
	v, ok := f[name]
	if !ok || v.IsNull() {
		return NotAvailable
	}
	return v.String()
}

// Missing 返回未被填充的字段，按 CandidateFields 顺序
func (f Fields) Missing() []FieldName {
	var missing []FieldName
	for _, spec := range CandidateFields {
		if v, ok := f[spec.Name]; !ok || v.IsNull() {
			missing = append(missing, spec.Name)
		}
	}
	return missing
}

// FieldsFromObject 将模型回复的JSON对象映射为字段集合。
// 先按提示词中的键精确匹配，再忽略大小写、空格、下划线匹配，未知键被丢弃。
func FieldsFromObject(obj map[string]Value) Fields {
	fields := make(Fields, len(CandidateFields))
	if len(obj) == 0 {
		return fields
	}

	loose := make(map[string]Value, len(obj))
	for k, v := range obj {
		loose[foldKey(k)] = v
	}

	for _, spec := range CandidateFields {
		if v, ok := obj[spec.PromptKey]; ok {
			fields[spec.Name] = v
			continue
		}
		if v, ok := loose[foldKey(spec.PromptKey)]; ok {
			fields[spec.Name] = v
		}
	}
	return fields
}

func foldKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(k)
}

// CandidateColumns 一条记录的十三个文本列
type CandidateColumns struct {
	CandidateName        string
	Email                string
	ContactNumber        string
	Academics            string
	Experience           string
	Certification        string
	Address              string
	Projects             string
	Internship           string
	Skillset             string
	ProgrammingLanguages string
	SpokenLanguages      string
	Summary              string
}

// Columns 把字段集合展平为入库用的文本列，每一列都有值
func (f Fields) Columns() CandidateColumns {
	return CandidateColumns{
		CandidateName:        f.Text(FieldCandidateName),
		Email:                f.Text(FieldEmail),
		ContactNumber:        f.Text(FieldContactNumber),
		Academics:            f.Text(FieldAcademics),
		Experience:           f.Text(FieldExperience),
		Certification:        f.Text(FieldCertification),
		Address:              f.Text(FieldAddress),
		Projects:             f.Text(FieldProjects),
		Internship:           f.Text(FieldInternship),
		Skillset:             f.Text(FieldSkillset),
		ProgrammingLanguages: f.Text(FieldProgrammingLanguages),
		SpokenLanguages:      f.Text(FieldSpokenLanguages),
		Summary:              f.Text(FieldSummary),
	}
}

// CandidateRecord 每个入库文档对应一条记录，写入后不再修改
type CandidateRecord struct {
	ID             int64
	SourceFileName string
	Fields         Fields
	Embedding      []float32
}

// QueryResult 最近邻检索结果，Score 为距离，越小越相似
type QueryResult struct {
	RecordID      int64   `json:"record_id"`
	FileName      string  `json:"filename"`
	CandidateName string  `json:"candidate_name"`
	Email         string  `json:"email"`
	Skillset      string  `json:"skillset"`
	Score         float64 `json:"score"`
}

// SourceDocument 待导入的一份文档。Name 为不含目录的文件名，作为记录的 SourceFileName。
type SourceDocument struct {
	Name     string
	Location string // 本地路径或对象键
	Size     int64
}
