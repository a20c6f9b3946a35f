package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 校验类错误可携带字段级明细（Fields），直接映射到 HTTP 422 响应体
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Schema 错误：VALIDATION（字段缺失/越界/枚举外取值）
//   - Feature 错误：ENCODING（编码时缺少词表必需字段）
//   - Scoring 错误：ARTIFACT_LOAD（模型工件缺失/损坏/版本不符）
//   - Client 错误：UPSTREAM_UNAVAILABLE（评分服务连接失败）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string       // 错误代码（如 "VALIDATION", "ARTIFACT_LOAD"）
	Message string       // 错误消息
	Module  string       // 模块名称（如 "schema", "scoring", "store"）
	Fields  []FieldError // 字段级错误明细（仅校验/编码类错误使用）
}

// FieldError 是单个字段的校验错误，一次校验收集全部字段错误后统一返回。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*DomainError)
	return ok
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// NewValidationError 创建带字段明细的校验错误。
// fields 为空时仍返回 VALIDATION 错误，调用方应尽量收集全部字段错误再返回。
func NewValidationError(module, message string, fields []FieldError) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeValidation,
		Message: message,
		Fields:  fields,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 评分链路错误代码
	ErrorCodeValidation          = "VALIDATION"           // 请求字段违反 schema 约束
	ErrorCodeEncoding            = "ENCODING"             // 编码时缺少词表必需字段
	ErrorCodeArtifactLoad        = "ARTIFACT_LOAD"        // 模型工件缺失/损坏/版本不符
	ErrorCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE" // 上游评分服务不可达
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleSchema    = "schema"    // 请求校验模块
	ModuleFeature   = "feature"   // 特征编码模块
	ModuleScoring   = "scoring"   // 评分流水线模块
	ModuleTrain     = "train"     // 训练模块
	ModuleService   = "service"   // 服务模块
	ModuleClient    = "client"    // 远程评分客户端
	ModuleCollector = "collector" // 预测事件收集模块
	ModulePolicy    = "policy"    // 挽留策略模块
	ModuleFeast     = "feast"     // Feast 特征存储模块
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

// IsValidation 检查错误是否为请求校验失败（HTTP 层映射为 422）
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeValidation
	}
	return false
}

// IsEncoding 检查错误是否为特征编码失败（必需字段缺失，属调用方缺陷）
func IsEncoding(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeEncoding
	}
	return false
}

// IsArtifactLoad 检查错误是否为模型工件加载失败（启动期致命错误）
func IsArtifactLoad(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeArtifactLoad
	}
	return false
}

// IsUpstreamUnavailable 检查错误是否为上游评分服务不可达（只上报，不重试）
func IsUpstreamUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUpstreamUnavailable
	}
	return false
}
