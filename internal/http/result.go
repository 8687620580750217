package httpapi

// Result 统一响应外壳
// - success: 请求是否成功
// - data: 成功时的载荷
// - error: 失败时的消息
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func Fail(message string) Result[any] {
	return Result[any]{Success: false, Error: message}
}
