package response

// AppError 响应层错误：业务码、文案键与已本地化的文案，原始错误只进日志。
type AppError struct {
	Code       int
	MessageKey string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 构建响应层错误
func NewAppError(code int, messageKey, message string, err error) *AppError {
	return &AppError{
		Code:       code,
		MessageKey: messageKey,
		Message:    message,
		Err:        err,
	}
}
