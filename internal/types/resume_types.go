package types

// Category 简历章节类别（封闭枚举，顺序即平局裁决顺序）
type Category string

const (
	CategorySummary        Category = "summary"
	CategoryEducation      Category = "education"
	CategoryExperience     Category = "experience"
	CategorySkills         Category = "skills"
	CategoryProjects       Category = "projects"
	CategoryCertifications Category = "certifications"
	CategoryAwards         Category = "awards"
	CategoryPublications   Category = "publications"
	CategoryLanguages      Category = "languages"
	CategoryInterests      Category = "interests"
	CategoryReferences     Category = "references"
)

// AllCategories 按固定枚举顺序列出全部类别
var AllCategories = []Category{
	CategorySummary,
	CategoryEducation,
	CategoryExperience,
	CategorySkills,
	CategoryProjects,
	CategoryCertifications,
	CategoryAwards,
	CategoryPublications,
	CategoryLanguages,
	CategoryInterests,
	CategoryReferences,
}

// Index 返回类别在枚举中的位置，未知类别返回 -1
func (c Category) Index() int {
	for i, v := range AllCategories {
		if v == c {
			return i
		}
	}
	return -1
}

// Valid 是否为已知类别
func (c Category) Valid() bool {
	return c.Index() >= 0
}

// Section 文档中属于某一类别的区间。
// Text 是 Document[Start:End] 去除首尾空白后的内容。
type Section struct {
	Category Category `json:"category"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Text     string   `json:"text"`
}

// DateExpression 命名实体识别得到的日期表达
type DateExpression struct {
	Text   string `json:"text"`            // 原文
	Normal string `json:"normal"`          // 归一化形式：YYYY、YYYY-MM 或 start/end
	Start  string `json:"start,omitempty"` // 区间起点
	End    string `json:"end,omitempty"`   // 区间终点，进行中为 present
}

// EducationEntry 教育经历条目，按位置配对生成
type EducationEntry struct {
	Institution *string `json:"institution"`
	Degree      *string `json:"degree"`
	Date        *string `json:"date"`
	GPA         *string `json:"gpa"`
}

// ExperienceEntry 工作经历条目
type ExperienceEntry struct {
	Company      *string         `json:"company"`
	Title        *string         `json:"title"`
	Period       *DateExpression `json:"period"`
	Achievements []string        `json:"achievements"`
}

// ResumeRecord 抽取结果
type ResumeRecord struct {
	Name          *string              `json:"name"`
	Education     []EducationEntry     `json:"education"`
	Experience    []ExperienceEntry    `json:"experience"`
	Skills        []string             `json:"skills"`
	Dates         []DateExpression     `json:"dates"`
	Organizations []string             `json:"organizations"`
	JobTitles     []string             `json:"jobTitles"`
	Sections      map[Category]*string `json:"sections"`
}

// ResumeScore LLM 按评分细则给出的分数（0-10）
type ResumeScore struct {
	Education               float64 `json:"Education Score"`
	WorkExperience          float64 `json:"Work Experience Score"`
	Skills                  float64 `json:"Skills Score"`
	ProjectsCertifications  float64 `json:"Projects & Certifications Score"`
	AchievementsAwards      float64 `json:"Achievements & Awards Score"`
	CommunicationFormatting float64 `json:"Communication & Formatting Score"`
	Overall                 float64 `json:"Overall Score"`
}

// ResumeSearchHit 相似简历检索结果
type ResumeSearchHit struct {
	SubmissionUUID string   `json:"submission_uuid"`
	FileName       string   `json:"file_name,omitempty"`
	Name           string   `json:"name,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	JobTitles      []string `json:"job_titles,omitempty"`
	Score          float32  `json:"score"`
}

// IngestResult 上传处理结果
type IngestResult struct {
	SubmissionUUID string        `json:"submission_uuid"`
	FileName       string        `json:"file_name"`
	Duplicate      bool          `json:"duplicate"`
	Scores         *ResumeScore  `json:"scores"`
	Extracted      *ResumeRecord `json:"extracted"`
	QuickTags      []string      `json:"quick_tags"`
}

// ResumeExtractedEvent 抽取完成后经 outbox 发布的事件
type ResumeExtractedEvent struct {
	SubmissionUUID string   `json:"submission_uuid"`
	FileName       string   `json:"file_name"`
	ObjectKey      string   `json:"object_key,omitempty"`
	CandidateName  string   `json:"candidate_name,omitempty"`
	Skills         []string `json:"skills"`
	QuickTags      []string `json:"quick_tags"`
	Scored         bool     `json:"scored"`
	Indexed        bool     `json:"indexed"`
	ExtractedAt    int64    `json:"extracted_at"`
}
