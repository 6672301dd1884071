package db

import (
	"database/sql"
	"fmt"
	"log"

	"Melodex/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createAlbumsTable(); err != nil {
		return err
	}
	if err := createSongsTable(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

func createAlbumsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS albums (
		id CHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL,
		image_url VARCHAR(767),
		release_year INT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create albums table: %w", err)
	}
	log.Println("Albums table initialized successfully (or already exists).")
	return nil
}

func createSongsTable() error {
	// album_id 可空：专辑删除时被置空而不是级联删除歌曲
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id CHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL,
		album_id CHAR(36),
		duration FLOAT NOT NULL DEFAULT 0,
		audio_url VARCHAR(767) NOT NULL,
		image_url VARCHAR(767),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_album_songs FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE SET NULL
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	log.Println("Songs table initialized successfully (or already exists).")
	return nil
}
