package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"Melodex/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
	bucket      string
	publicURL   string
)

// InitMinio 初始化 MinIO 客户端
func InitMinio(cfg *config.Config) error {
	log.Printf("正在连接 MinIO 服务器...")
	log.Printf("Bucket: %s", cfg.MinioBucket)

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 检查存储桶是否存在
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		log.Printf("成功创建存储桶: %s", cfg.MinioBucket)
	}

	minioClient = client
	bucket = cfg.MinioBucket
	publicURL = cfg.MinioPublicURL
	log.Println("MinIO 客户端初始化成功")
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadAudio 上传音频文件，返回公开访问URL
func UploadAudio(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	return upload(ctx, path.Join("audio", objectName), reader, size, contentType)
}

// UploadCover 上传封面图片，返回公开访问URL
func UploadCover(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	return upload(ctx, path.Join("covers", objectName), reader, size, contentType)
}

func upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}

	_, err := minioClient.PutObject(ctx, bucket, objectPath, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传文件失败 %s: %w", objectPath, err)
	}

	return publicURL + "/" + objectPath, nil
}
