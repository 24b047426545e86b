package errors

import (
	"net/http"
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Lottery Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Lottery 固定为 20
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   00: 通用模块
//   01: 每日抽奖标记模块
//   02: 配置模块
//   03: 每日预算模块
//   04: 直充模块
//   05: 账户映射模块
//   06: 归档模块

// 通用模块错误码 (200000-200099)
const (
	// ErrCodeSystemError 系统错误
	ErrCodeSystemError = 200001
	// ErrCodeStoreUnavailable 存储不可用
	ErrCodeStoreUnavailable = 200002
	// ErrCodeSystemBusy 系统繁忙
	ErrCodeSystemBusy = 200003
	// ErrCodeUnauthorized 未登录
	ErrCodeUnauthorized = 200004
	// ErrCodeForbidden 无权限
	ErrCodeForbidden = 200005
	// ErrCodeInvalidArgument 参数错误
	ErrCodeInvalidArgument = 200006
)

// 每日抽奖标记模块错误码 (200100-200199)
const (
	// ErrCodeAlreadyClaimed 今日免费次数已用完
	ErrCodeAlreadyClaimed = 200101
)

// 配置模块错误码 (200200-200299)
const (
	// ErrCodeLotteryDisabled 抽奖活动未开放
	ErrCodeLotteryDisabled = 200201
	// ErrCodeConfigInvalid 抽奖配置异常
	ErrCodeConfigInvalid = 200202
)

// 每日预算模块错误码 (200300-200399)
const (
	// ErrCodeBudgetExhausted 今日发放额度已达上限
	ErrCodeBudgetExhausted = 200301
)

// 直充模块错误码 (200400-200499)
const (
	// ErrCodeCreditFailed 直充失败
	ErrCodeCreditFailed = 200401
)

// 账户映射模块错误码 (200500-200599)
const (
	// ErrCodeAccountNotLinked 未找到外部计费账户
	ErrCodeAccountNotLinked = 200501
)

// 归档模块错误码 (200600-200699)
const (
	// ErrCodePendingNotFound 待核对记录不存在
	ErrCodePendingNotFound = 200601
	// ErrCodePendingAlreadyResolved 待核对记录已处理
	ErrCodePendingAlreadyResolved = 200602
)

type codeInfo struct {
	status  int
	reason  string
	message string
}

var codes = map[int]codeInfo{
	ErrCodeSystemError:            {http.StatusInternalServerError, "SYSTEM_ERROR", "system error, please try again later"},
	ErrCodeStoreUnavailable:       {http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "system busy, please try again later"},
	ErrCodeSystemBusy:             {http.StatusServiceUnavailable, "SYSTEM_BUSY", "system busy, please try again later"},
	ErrCodeUnauthorized:           {http.StatusUnauthorized, "UNAUTHORIZED", "please log in first"},
	ErrCodeForbidden:              {http.StatusForbidden, "FORBIDDEN", "permission denied"},
	ErrCodeInvalidArgument:        {http.StatusBadRequest, "INVALID_ARGUMENT", "invalid argument"},
	ErrCodeAlreadyClaimed:         {http.StatusConflict, "ALREADY_CLAIMED", "today's free spin has been used, come back tomorrow"},
	ErrCodeLotteryDisabled:        {http.StatusBadRequest, "LOTTERY_DISABLED", "the lottery is not open"},
	ErrCodeConfigInvalid:          {http.StatusBadRequest, "CONFIG_INVALID", "lottery configuration error, please contact an administrator"},
	ErrCodeBudgetExhausted:        {http.StatusBadRequest, "BUDGET_EXHAUSTED", "today's payout limit has been reached, please try tomorrow"},
	ErrCodeCreditFailed:           {http.StatusBadRequest, "CREDIT_FAILED", "credit failed, please try again later"},
	ErrCodeAccountNotLinked:       {http.StatusBadRequest, "ACCOUNT_NOT_LINKED", "no linked billing account found, please log in to the billing site first"},
	ErrCodePendingNotFound:        {http.StatusNotFound, "PENDING_NOT_FOUND", "pending spin not found"},
	ErrCodePendingAlreadyResolved: {http.StatusConflict, "PENDING_ALREADY_RESOLVED", "pending spin already resolved"},
}

// New builds the kratos error for a business code. Unknown codes map to SYSTEM_ERROR.
func New(code int) *kerrors.Error {
	info, ok := codes[code]
	if !ok {
		code = ErrCodeSystemError
		info = codes[ErrCodeSystemError]
	}
	return kerrors.New(info.status, info.reason, info.message).
		WithMetadata(map[string]string{"code": strconv.Itoa(code)})
}

// Newf is New with a custom message.
func Newf(code int, message string) *kerrors.Error {
	e := New(code)
	e.Message = message
	return e
}

// Wrap attaches cause to the error for code.
func Wrap(code int, cause error) *kerrors.Error {
	return New(code).WithCause(cause)
}

// Is reports whether err carries the business code.
func Is(err error, code int) bool {
	info, ok := codes[code]
	if !ok || err == nil {
		return false
	}
	return kerrors.Reason(err) == info.reason
}

// CodeOf returns the business code carried by err, ErrCodeSystemError when it has none.
func CodeOf(err error) int {
	se := kerrors.FromError(err)
	if se == nil {
		return 0
	}
	if raw, ok := se.Metadata["code"]; ok {
		if code, convErr := strconv.Atoi(raw); convErr == nil {
			return code
		}
	}
	for code, info := range codes {
		if info.reason == se.Reason {
			return code
		}
	}
	return ErrCodeSystemError
}
