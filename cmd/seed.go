package cmd

import (
	"context"
	"fmt"
	"log"

	"Melodex/config"
	"Melodex/db"
	"Melodex/model"
	"Melodex/repository"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "填充示例数据",
	Long:  `清空歌曲和专辑表，然后写入一组示例数据，用于本地开发和演示。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接到数据库: %v", err)
		}
		defer db.DB.Close()

		if err := db.InitDB(); err != nil {
			log.Fatalf("数据库初始化失败: %v", err)
		}

		ctx := context.Background()

		// 先清空，歌曲引用专辑，顺序不能反
		if _, err := db.DB.ExecContext(ctx, `DELETE FROM songs`); err != nil {
			log.Fatalf("清空歌曲表失败: %v", err)
		}
		if _, err := db.DB.ExecContext(ctx, `DELETE FROM albums`); err != nil {
			log.Fatalf("清空专辑表失败: %v", err)
		}

		songRepo := repository.NewMySQLSongRepository(db.DB)
		albumRepo := repository.NewMySQLAlbumRepository(db.DB)

		type seedSong struct {
			title    string
			artist   string
			duration float64
		}
		type seedAlbum struct {
			title       string
			artist      string
			releaseYear int
			songs       []seedSong
		}

		albums := []seedAlbum{
			{
				title: "Urban Nights", artist: "Various Artists", releaseYear: 2024,
				songs: []seedSong{
					{"City Rain", "Urban Echo", 197},
					{"Neon Lights", "Night Runners", 228},
					{"Urban Jungle", "City Lights", 196},
					{"Neon Dreams", "Cyber Pulse", 183},
				},
			},
			{
				title: "Coastal Dreaming", artist: "Various Artists", releaseYear: 2024,
				songs: []seedSong{
					{"Ocean Waves", "Coastal Drift", 204},
					{"Crystal Rain", "Echo Valley", 205},
					{"Summer Breeze", "Coastal Drift", 172},
					{"Midnight Tide", "Silver Shores", 188},
				},
			},
			{
				title: "Midnight Sessions", artist: "The Lo-Fi Collective", releaseYear: 2023,
				songs: []seedSong{
					{"Moonlight Dance", "Silver Shadows", 189},
					{"Lost in Tokyo", "Electric Dreams", 212},
					{"Neon Tokyo", "Future Pulse", 230},
					{"Purple Sunset", "Dream Valley", 194},
				},
			},
		}

		// 不属于任何专辑的单曲
		singles := []seedSong{
			{"Stay With Me", "Sarah Mitchell", 46},
			{"Midnight Drive", "The Wanderers", 41},
			{"Lost in the City", "Street Vibes", 24},
			{"Silent Dreams", "Luna Bay", 28},
			{"Morning Light", "Dawn Chorus", 35},
			{"Echoes of You", "The Memory Lane", 39},
		}

		totalSongs := 0
		for _, a := range albums {
			albumID := uuid.NewString()
			album := &model.Album{
				ID:          albumID,
				Title:       a.title,
				Artist:      a.artist,
				ImageURL:    fmt.Sprintf("%s/covers/%s.jpg", cfg.MinioPublicURL, albumID),
				ReleaseYear: a.releaseYear,
			}
			if err := albumRepo.CreateAlbum(ctx, album); err != nil {
				log.Fatalf("写入专辑 %q 失败: %v", a.title, err)
			}

			for _, s := range a.songs {
				if err := createSeedSong(ctx, songRepo, cfg, s.title, s.artist, s.duration, &albumID); err != nil {
					log.Fatalf("写入歌曲 %q 失败: %v", s.title, err)
				}
				totalSongs++
			}
		}

		for _, s := range singles {
			if err := createSeedSong(ctx, songRepo, cfg, s.title, s.artist, s.duration, nil); err != nil {
				log.Fatalf("写入歌曲 %q 失败: %v", s.title, err)
			}
			totalSongs++
		}

		fmt.Printf("示例数据写入完成: %d 张专辑, %d 首歌曲\n", len(albums), totalSongs)
	},
}

func createSeedSong(ctx context.Context, repo repository.SongRepository, cfg *config.Config,
	title, artist string, duration float64, albumID *string) error {
	songID := uuid.NewString()
	return repo.CreateSong(ctx, &model.Song{
		ID:       songID,
		Title:    title,
		Artist:   artist,
		AlbumID:  albumID,
		Duration: duration,
		AudioURL: fmt.Sprintf("%s/audio/%s.mp3", cfg.MinioPublicURL, songID),
		ImageURL: fmt.Sprintf("%s/covers/%s.jpg", cfg.MinioPublicURL, songID),
	})
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
