package client

import (
	"context"
	"sync"

	"Melodex/model"
)

// MusicStore caches catalog data fetched from the server and keeps it
// consistent after destructive operations.
//
// 所有集合只能通过 store 自己的操作修改；UI 层读取快照，不直接改内部状态。
// 删除操作是"先确认后应用"：远端失败时本地缓存保持不变。
type MusicStore struct {
	remote   *RemoteClient
	notifier Notifier

	mu    sync.Mutex
	state fetchState

	albums          []*model.Album
	songs           []*model.Song
	madeForYouSongs []*model.Song
	trendingSongs   []*model.Song
	featuredSongs   []*model.Song
	currentAlbum    *model.AlbumWithSongs
	stats           model.Stats
}

// NewMusicStore 创建目录 store
func NewMusicStore(remote *RemoteClient, notifier Notifier) *MusicStore {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &MusicStore{
		remote:   remote,
		notifier: notifier,
	}
}

func (s *MusicStore) run(op func() error) error {
	return s.state.run(s.mu.Lock, s.mu.Unlock, op)
}

// FetchAlbums 拉取全部专辑并替换本地集合
func (s *MusicStore) FetchAlbums(ctx context.Context) error {
	return s.run(func() error {
		var albums []*model.Album
		if err := s.remote.Get(ctx, "/api/albums", &albums); err != nil {
			return err
		}
		s.mu.Lock()
		s.albums = albums
		s.mu.Unlock()
		return nil
	})
}

// FetchAlbumByID 拉取单张专辑（含歌曲）
func (s *MusicStore) FetchAlbumByID(ctx context.Context, id string) error {
	return s.run(func() error {
		var album model.AlbumWithSongs
		if err := s.remote.Get(ctx, "/api/albums/"+id, &album); err != nil {
			return err
		}
		s.mu.Lock()
		s.currentAlbum = &album
		s.mu.Unlock()
		return nil
	})
}

// FetchSongs 拉取全部歌曲
func (s *MusicStore) FetchSongs(ctx context.Context) error {
	return s.run(func() error {
		var songs []*model.Song
		if err := s.remote.Get(ctx, "/api/songs", &songs); err != nil {
			return err
		}
		s.mu.Lock()
		s.songs = songs
		s.mu.Unlock()
		return nil
	})
}

// FetchMadeForYouSongs 拉取个性推荐列表
func (s *MusicStore) FetchMadeForYouSongs(ctx context.Context) error {
	return s.run(func() error {
		var songs []*model.Song
		if err := s.remote.Get(ctx, "/api/songs/made-for-you", &songs); err != nil {
			return err
		}
		s.mu.Lock()
		s.madeForYouSongs = songs
		s.mu.Unlock()
		return nil
	})
}

// FetchTrendingSongs 拉取热门列表
func (s *MusicStore) FetchTrendingSongs(ctx context.Context) error {
	return s.run(func() error {
		var songs []*model.Song
		if err := s.remote.Get(ctx, "/api/songs/trending", &songs); err != nil {
			return err
		}
		s.mu.Lock()
		s.trendingSongs = songs
		s.mu.Unlock()
		return nil
	})
}

// FetchFeaturedSongs 拉取精选列表
func (s *MusicStore) FetchFeaturedSongs(ctx context.Context) error {
	return s.run(func() error {
		var songs []*model.Song
		if err := s.remote.Get(ctx, "/api/songs/featured", &songs); err != nil {
			return err
		}
		s.mu.Lock()
		s.featuredSongs = songs
		s.mu.Unlock()
		return nil
	})
}

// FetchStats 拉取目录统计
func (s *MusicStore) FetchStats(ctx context.Context) error {
	return s.run(func() error {
		var stats model.Stats
		if err := s.remote.Get(ctx, "/api/stats", &stats); err != nil {
			return err
		}
		s.mu.Lock()
		s.stats = stats
		s.mu.Unlock()
		return nil
	})
}

// DeleteSong 删除歌曲：远端确认成功后才从本地集合移除
func (s *MusicStore) DeleteSong(ctx context.Context, id string) error {
	err := s.run(func() error {
		if err := s.remote.Delete(ctx, "/api/admin/songs/"+id); err != nil {
			return err
		}
		s.mu.Lock()
		kept := s.songs[:0]
		for _, song := range s.songs {
			if song.ID != id {
				kept = append(kept, song)
			}
		}
		s.songs = kept
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		s.notifier.Error("Error deleting song")
		return err
	}
	s.notifier.Success("Song deleted successfully")
	return nil
}

// DeleteAlbum 删除专辑
// 成功后按专辑ID移除本地记录，并清除引用该专辑的歌曲的 AlbumID（只清引用，不删歌曲）。
// 按ID而不是按专辑名匹配，避免误伤碰巧同名的无关专辑。
func (s *MusicStore) DeleteAlbum(ctx context.Context, id string) error {
	err := s.run(func() error {
		if err := s.remote.Delete(ctx, "/api/admin/albums/"+id); err != nil {
			return err
		}
		s.mu.Lock()
		kept := s.albums[:0]
		for _, album := range s.albums {
			if album.ID != id {
				kept = append(kept, album)
			}
		}
		s.albums = kept
		for _, song := range s.songs {
			if song.AlbumID != nil && *song.AlbumID == id {
				song.AlbumID = nil
			}
		}
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		s.notifier.Error("Error deleting album")
		return err
	}
	s.notifier.Success("Album deleted successfully")
	return nil
}

// IsLoading reports whether any operation is in flight.
func (s *MusicStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.isLoading
}

// Err returns the message recorded by the most recent failed operation.
func (s *MusicStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.err
}

// Albums 返回专辑集合快照
func (s *MusicStore) Albums() []*model.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Album(nil), s.albums...)
}

// Songs 返回歌曲集合快照
func (s *MusicStore) Songs() []*model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Song(nil), s.songs...)
}

// MadeForYouSongs 返回个性推荐快照
func (s *MusicStore) MadeForYouSongs() []*model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Song(nil), s.madeForYouSongs...)
}

// TrendingSongs 返回热门快照
func (s *MusicStore) TrendingSongs() []*model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Song(nil), s.trendingSongs...)
}

// FeaturedSongs 返回精选快照
func (s *MusicStore) FeaturedSongs() []*model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Song(nil), s.featuredSongs...)
}

// CurrentAlbum 返回最近一次 FetchAlbumByID 的结果
func (s *MusicStore) CurrentAlbum() *model.AlbumWithSongs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentAlbum
}

// Stats 返回统计快照
func (s *MusicStore) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
