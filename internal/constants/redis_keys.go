package constants

// Redis Key 格式: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 所有 Redis Key 的统一前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"

	// EntityFileMD5 原始文件 MD5
	EntityFileMD5 = "file_md5"
	// EntityRecord 抽取结果
	EntityRecord = "record"

	// KeyFileMD5ToSubmission 文件 MD5 到 submission_uuid 的映射 (STRING)
	// 格式: app:resume:file_md5:{md5}
	KeyFileMD5ToSubmission = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityFileMD5 + ":%s"

	// KeyExtractedRecord 文本 MD5 到抽取结果 JSON 的缓存 (STRING)
	// 格式: app:resume:record:{md5}
	KeyExtractedRecord = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityRecord + ":%s"
)
