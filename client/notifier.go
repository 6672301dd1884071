package client

// Notifier 接收面向用户的操作结果通知（对应前端的toast）
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// NopNotifier 丢弃所有通知
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}
