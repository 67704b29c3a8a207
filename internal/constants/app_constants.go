package constants

const (
	// ExtractorVersion 写入提交记录，抽取规则变化时递增
	ExtractorVersion = "1.0"

	// EventResumeExtracted 简历抽取完成事件
	EventResumeExtracted = "resume.extracted"

	// ResumeObjectPrefix MinIO 中原始简历的对象前缀
	ResumeObjectPrefix = "resumes/"

	// EmbeddingMaxInputRunes 向量化前输入文本的截断长度
	EmbeddingMaxInputRunes = 512
)

// outbox 消息状态
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)
