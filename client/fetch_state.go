package client

import (
	"fmt"

	"Melodex/logger"
)

// fetchState 是每个 store 共享的加载/错误槽位
// 整个 store 只有一个槽位：并发操作各自拥有自己的 1→5 括号，最后写入者胜出。
// 调用方应把 isLoading 理解为"有请求在途"，而不是某个具体操作的状态。
type fetchState struct {
	isLoading bool
	err       string
}

// run brackets an operation with the loading flag and error slot.
//
// 1. isLoading=true，清除上一次的错误
// 2. 执行 op
// 3. 失败时记录消息（服务端 message 优先，传输错误用统一提示）
// 4. 无论成败，isLoading 都会被复位——包括 op panic 的情况
//
// 状态字段由 store 自己的互斥锁保护，lock/unlock 由调用方传入。
func (f *fetchState) run(lock, unlock func(), op func() error) (err error) {
	lock()
	f.isLoading = true
	f.err = ""
	unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
			logger.Error("[Store] 操作panic", logger.Any("panic", r))
			lock()
			f.err = transportErrMsg
			unlock()
		}
		lock()
		f.isLoading = false
		unlock()
	}()

	if err = op(); err != nil {
		lock()
		f.err = errorMessage(err)
		unlock()
	}
	return err
}
