package models

import (
	"time"

	"gorm.io/datatypes"
)

// ResumeSubmission 简历提交记录，抽取结果和评分以 JSON 保存
type ResumeSubmission struct {
	SubmissionUUID   string         `gorm:"type:char(36);primaryKey"`
	OriginalFilename string         `gorm:"type:varchar(255)"`
	ObjectKey        string         `gorm:"type:varchar(1024)"`
	FileMD5          string         `gorm:"type:char(32);index:idx_rs_file_md5"`
	TextMD5          string         `gorm:"type:char(32);index:idx_rs_text_md5"`
	CandidateName    string         `gorm:"type:varchar(255)"`
	ExtractedRecord  datatypes.JSON `gorm:"type:json"`
	Scores           datatypes.JSON `gorm:"type:json"`
	QuickTags        datatypes.JSON `gorm:"type:json"`
	Indexed          bool           `gorm:"default:false"`
	ExtractorVersion string         `gorm:"type:varchar(50)"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_created_at"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}
