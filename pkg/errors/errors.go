package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 报表流水线错误。
var (
	GatewayUnavailable = Definition{Code: "GATEWAY_UNAVAILABLE", Message: "Slack is unavailable right now"}
	ChannelNotFound    = Definition{Code: "CHANNEL_NOT_FOUND", Message: "Channel not found"}
	InvalidWindow      = Definition{Code: "INVALID_WINDOW", Message: "Report window start is after its end"}
	NoData             = Definition{Code: "NO_DATA", Message: "Nothing to report"}
)

// 斜杠命令输入错误。
var (
	UsageError = Definition{Code: "USAGE_ERROR", Message: "Invalid command usage"}
)

// HTTP 入口错误。
var (
	InvalidRequest   = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	InvalidSignature = Definition{Code: "INVALID_SIGNATURE", Message: "Invalid Slack signature"}
	TooManyRequests  = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	GatewayUnavailable.Code: GatewayUnavailable,
	ChannelNotFound.Code:    ChannelNotFound,
	InvalidWindow.Code:      InvalidWindow,
	NoData.Code:             NoData,
	UsageError.Code:         UsageError,
	InvalidRequest.Code:     InvalidRequest,
	InvalidSignature.Code:   InvalidSignature,
	TooManyRequests.Code:    TooManyRequests,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// As 从错误链中取出最外层的 Definition。
func As(err error) (Definition, bool) {
	var def Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}

// IsCallerError 区分调用方输入问题与系统故障，前者不按失败记录日志。
func IsCallerError(err error) bool {
	return stderrors.Is(err, UsageError) || stderrors.Is(err, InvalidWindow)
}

// SkipMessageError 消费者用于表示消息无需处理（重复投递等），不应重新入队。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return stderrors.As(err, &skip)
}
