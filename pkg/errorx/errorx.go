// Package errorx 定义带业务错误码的错误类型
// HTTP 层据此返回 {code,msg}，WebSocket 层据此生成 error 信封
package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 支持 %w 包装底层错误，可被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 面向客户端的错误消息
	cause error  // 被包装的底层错误
}

// Error 有底层错误时返回 "消息: 底层错误"
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 同码即视为同一种错误，便于 errors.Is(err, errorx.ErrForbidden)
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.cause == nil && t.Code == e.Code
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
// 用法: errorx.Wrap(err, CodeDBError, "insert post")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg, cause: err}
}

// Wrapf 包装底层错误，支持格式化消息
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...), cause: err}
}

// GetCode 提取业务错误码，非 CodeError 返回 CodeServerBusy
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// Message 提取可以展示给客户端的消息
// 内部错误（DB/缓存）不暴露底层细节
func Message(err error) string {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return ErrServerBusy.Msg
	}
	switch codeErr.Code {
	case CodeDBError, CodeCacheError:
		return ErrServerBusy.Msg
	}
	return codeErr.Msg
}

// 业务状态码
const (
	CodeSuccess       = 1000 // 成功
	CodeInvalidParam  = 1001 // 请求参数错误
	CodeUserExist     = 1002 // 用户已存在
	CodeUserNotExist  = 1003 // 用户不存在
	CodeServerBusy    = 1005 // 服务繁忙
	CodeUnauthorized  = 1006 // 未授权/认证失败
	CodeForbidden     = 1007 // 无权限
	CodeNotFound      = 1008 // 资源不存在
	CodeQuotaExceeded = 1009 // 超出配额
	CodeDBError       = 1010 // 数据库错误
	CodeCacheError    = 1011 // 缓存错误
	CodeConflict      = 1012 // 状态冲突
)

// 预定义错误实例，可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrServerBusy    = New(CodeServerBusy, "server busy")
	ErrUnauthorized  = New(CodeUnauthorized, "unauthorized")
	ErrForbidden     = New(CodeForbidden, "permission denied")
	ErrNotMember     = New(CodeForbidden, "not a member of this channel")
	ErrNotFound      = New(CodeNotFound, "resource not found")
	ErrQuotaExceeded = New(CodeQuotaExceeded, "too many concurrent sessions")
)

// IsNotFound 检查错误是否为"未找到"类型（包括 gorm.ErrRecordNotFound）
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code == CodeNotFound {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// HasCode 判断错误链中是否存在指定错误码
func HasCode(err error, code int) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == code
}
