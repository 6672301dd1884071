// Package cleanup reclaims stale files from the upload staging directory.
package cleanup

import (
	"os"
	"path/filepath"
	"time"

	"Melodex/logger"
)

// Sweeper 定期删除暂存目录中超龄的临时文件
type Sweeper struct {
	dir    string
	every  time.Duration
	maxAge time.Duration
	done   chan struct{}
}

// NewSweeper 创建清理器
func NewSweeper(dir string, every, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		dir:    dir,
		every:  every,
		maxAge: maxAge,
		done:   make(chan struct{}),
	}
}

// Start 在后台goroutine中运行清理循环
func (s *Sweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SweepOnce()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop 停止清理循环
func (s *Sweeper) Stop() {
	close(s.done)
}

// SweepOnce removes files in the staging dir older than maxAge.
// 子目录不做递归处理，staging 目录是平铺的。
func (s *Sweeper) SweepOnce() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("[Sweep] 读取暂存目录失败", logger.ErrorField(err))
		}
		return
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("[Sweep] 删除临时文件失败",
				logger.String("path", path),
				logger.ErrorField(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("[Sweep] 清理临时文件完成", logger.Int("removed", removed))
	}
}
