package client

import (
	"testing"

	"Melodex/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerStore_StartsIdle(t *testing.T) {
	p := NewPlayerStore()

	_, ok := p.Current()
	assert.False(t, ok)
	assert.False(t, p.IsPlaying())

	// Idle 状态下切换是空操作
	p.TogglePlay()
	assert.False(t, p.IsPlaying())
}

func TestPlayerStore_SelectTrackStartsPlaying(t *testing.T) {
	p := NewPlayerStore()
	p.SelectTrack(model.Song{ID: "a", Title: "A"})

	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "a", current.ID)
	assert.True(t, p.IsPlaying())
}

func TestPlayerStore_ReselectTogglesInsteadOfRestarting(t *testing.T) {
	p := NewPlayerStore()
	a := model.Song{ID: "a"}

	p.SelectTrack(a)
	p.SelectTrack(a)

	// 第二次选中同一首歌进入 Paused(A)，而不是重新播放
	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "a", current.ID)
	assert.False(t, p.IsPlaying())

	// 再选一次恢复播放
	p.SelectTrack(a)
	assert.True(t, p.IsPlaying())
}

func TestPlayerStore_SelectDifferentTrackPlaysIt(t *testing.T) {
	p := NewPlayerStore()

	p.SelectTrack(model.Song{ID: "a"})
	p.SelectTrack(model.Song{ID: "b"})

	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "b", current.ID)
	assert.True(t, p.IsPlaying())
}

func TestPlayerStore_ToggleFlipsWithoutChangingTrack(t *testing.T) {
	p := NewPlayerStore()
	p.SelectTrack(model.Song{ID: "a"})

	p.TogglePlay()
	assert.False(t, p.IsPlaying())
	p.TogglePlay()
	assert.True(t, p.IsPlaying())

	current, _ := p.Current()
	assert.Equal(t, "a", current.ID)
}

func TestPlayerStore_Reset(t *testing.T) {
	p := NewPlayerStore()
	p.SelectTrack(model.Song{ID: "a"})

	p.Reset()

	_, ok := p.Current()
	assert.False(t, ok)
	assert.False(t, p.IsPlaying())
}
