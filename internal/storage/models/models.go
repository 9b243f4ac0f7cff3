package models

import (
	"candidate-search/internal/types"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// CandidateColumns 十三个抽取字段的列定义，PostgreSQL 与 MySQL 共用
type CandidateColumns struct {
	CandidateName        string `gorm:"column:candidatename;type:text"`
	Email                string `gorm:"column:email;type:text"`
	ContactNumber        string `gorm:"column:contactnumber;type:text"`
	Academics            string `gorm:"column:academics;type:text"`
	Experience           string `gorm:"column:experience;type:text"`
	Certification        string `gorm:"column:certification;type:text"`
	Address              string `gorm:"column:address;type:text"`
	Projects             string `gorm:"column:projects;type:text"`
	Internship           string `gorm:"column:internship;type:text"`
	Skillset             string `gorm:"column:skillset;type:text"`
	ProgrammingLanguages string `gorm:"column:programming_languages;type:text"`
	SpokenLanguages      string `gorm:"column:spoken_languages;type:text"`
	Summary              string `gorm:"column:summary;type:text"`
}

// FromTypes 转换抽取结果的列值
func FromTypes(c types.CandidateColumns) CandidateColumns {
	return CandidateColumns{
		CandidateName:        c.CandidateName,
		Email:                c.Email,
		ContactNumber:        c.ContactNumber,
		Academics:            c.Academics,
		Experience:           c.Experience,
		Certification:        c.Certification,
		Address:              c.Address,
		Projects:             c.Projects,
		Internship:           c.Internship,
		Skillset:             c.Skillset,
		ProgrammingLanguages: c.ProgrammingLanguages,
		SpokenLanguages:      c.SpokenLanguages,
		Summary:              c.Summary,
	}
}

// CandidateVector PostgreSQL(pgvector) 中的一行，向量列维度在建表时确定。
// 表名由存储实现通过 Table() 指定，默认 docvectors。
type CandidateVector struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SourceFileName string `gorm:"column:filename;type:text"`
	CandidateColumns
	Embedding pgvector.Vector `gorm:"column:vector;type:vector"`
}

// CandidateVectorMySQL MySQL 中的一行，向量以 JSON 数组保存
type CandidateVectorMySQL struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SourceFileName string `gorm:"column:filename;type:varchar(512)"`
	CandidateColumns
	Embedding datatypes.JSON `gorm:"column:vector;type:json;not null"`
}
