package client

import (
	"sync"

	"Melodex/model"
)

// PlayerStore tracks the currently selected track and its play/pause status.
//
// 状态机：Idle（无当前歌曲）/ Paused(t) / Playing(t)。
// 选中一首新歌总是直接进入播放；重复选中当前歌曲等价于 TogglePlay，
// 即暂停/恢复而不是从头重播。
type PlayerStore struct {
	mu        sync.Mutex
	current   *model.Song
	isPlaying bool
}

// NewPlayerStore 创建播放 store，初始为 Idle
func NewPlayerStore() *PlayerStore {
	return &PlayerStore{}
}

// SelectTrack 处理UI的播放按钮点击
func (p *PlayerStore) SelectTrack(song model.Song) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.ID == song.ID {
		// 重复选中当前歌曲：走切换而不是重播
		p.isPlaying = !p.isPlaying
		return
	}

	track := song
	p.current = &track
	p.isPlaying = true
}

// TogglePlay 在播放/暂停间切换；Idle 状态下是空操作
func (p *PlayerStore) TogglePlay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}
	p.isPlaying = !p.isPlaying
}

// Current returns the selected track, if any.
func (p *PlayerStore) Current() (model.Song, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return model.Song{}, false
	}
	return *p.current, true
}

// IsPlaying reports whether playback is active.
func (p *PlayerStore) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isPlaying
}

// Reset 回到 Idle（UI teardown 时调用）
func (p *PlayerStore) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.isPlaying = false
}
