// Package errors 提供带业务错误码的应用错误
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	// 通用错误 (1xxx)
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证错误 (2xxx)
	CodeTokenExpired ErrorCode = "2001"
	CodeTokenInvalid ErrorCode = "2002"
	CodeTokenMissing ErrorCode = "2003"

	// 资源错误 (3xxx)
	CodeProjectNotFound  ErrorCode = "3001"
	CodeChapterNotFound  ErrorCode = "3002"
	CodeProviderNotFound ErrorCode = "3003"
	CodeHistoryNotFound  ErrorCode = "3005"

	// 生成与会话错误 (4xxx)
	CodeCredentialInvalid ErrorCode = "4002"
	CodeUnknownBackend    ErrorCode = "4003"
	CodeDuplicateRequest  ErrorCode = "4004"
	CodeSessionBusy       ErrorCode = "4005"
	CodeInvalidTransition ErrorCode = "4006"
	CodeNothingToAccept   ErrorCode = "4007"
	CodeDocumentNotBound  ErrorCode = "4008"

	// 外部依赖错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeLLMProviderError ErrorCode = "5005"
)

// httpStatus 未列出的错误码按 500 处理
var httpStatus = map[ErrorCode]int{
	CodeInvalidParam:       http.StatusBadRequest,
	CodeTokenExpired:       http.StatusUnauthorized,
	CodeTokenInvalid:       http.StatusUnauthorized,
	CodeTokenMissing:       http.StatusUnauthorized,
	CodeProjectNotFound:    http.StatusNotFound,
	CodeChapterNotFound:    http.StatusNotFound,
	CodeProviderNotFound:   http.StatusNotFound,
	CodeHistoryNotFound:    http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeDuplicateRequest:   http.StatusConflict,
	CodeSessionBusy:        http.StatusConflict,
	CodeInvalidTransition:  http.StatusConflict,
	CodeNothingToAccept:    http.StatusUnprocessableEntity,
	CodeDocumentNotBound:   http.StatusUnprocessableEntity,
	CodeUnknownBackend:     http.StatusUnprocessableEntity,
	CodeCredentialInvalid:  http.StatusUnprocessableEntity,
	CodeTooManyRequests:    http.StatusTooManyRequests,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeLLMProviderError:   http.StatusBadGateway,
}

// AppError 应用错误，HTTPStatus 由错误码决定
//
// 包级预定义错误会被多处共享，不要修改其字段。
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建应用错误
func New(code ErrorCode, message string) *AppError {
	return Wrap(nil, code, message)
}

// Wrap 以错误码包装底层错误，err 可为 nil
func Wrap(err error, code ErrorCode, message string) *AppError {
	status, ok := httpStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

var (
	ErrChapterNotFound  = New(CodeChapterNotFound, "chapter not found")
	ErrHistoryNotFound  = New(CodeHistoryNotFound, "generation history not found")
	ErrSessionBusy      = New(CodeSessionBusy, "a generation is already streaming")
	ErrNothingToAccept  = New(CodeNothingToAccept, "nothing to accept")
	ErrDocumentNotBound = New(CodeDocumentNotBound, "no document bound to the inline session")
)

// IsCode 错误链中第一个 AppError 的错误码是否为 code
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsAppError 错误链中是否有 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 取出错误链中的 AppError，没有时包装为 CodeUnknown
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
