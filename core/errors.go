package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Ledger 校验错误：INVALID_INPUT（客户端可见）
//   - 目录错误：NOT_FOUND
//   - 引擎就绪检查：NOT_READY（目录为空，无兜底可用）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_INPUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "ledger", "profile", "catalog"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效（校验失败）
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeNotReady      = "NOT_READY"      // 引擎未就绪（目录为空）
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleLedger  = "ledger"  // 行为账本
	ModuleProfile = "profile" // 偏好画像
	ModuleCatalog = "catalog" // 商品目录
	ModuleVector  = "vector"  // 向量检索
	ModuleStore   = "store"   // 存储
	ModuleEngine  = "engine"  // 引擎门面
)

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT（校验失败，客户端可见）。
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED。
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE。
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsNotReady 检查错误是否为 NOT_READY。
func IsNotReady(err error) bool { return hasCode(err, ErrorCodeNotReady) }
