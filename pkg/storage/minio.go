// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pai-search-go/internal/config"
	"pai-search-go/internal/model"
	"pai-search-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Snapshot 是归档到对象存储的一次搜索，不包含图表数据。
type Snapshot struct {
	ID        string               `json:"id"`
	Query     string               `json:"query"`
	Answer    string               `json:"answer"`
	Sources   []model.SearchResult `json:"sources"`
	CreatedAt time.Time            `json:"created_at"`
}

// SnapshotStore 把搜索快照写入 MinIO 存储桶。
type SnapshotStore struct {
	client     *minio.Client
	bucketName string
}

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) (*SnapshotStore, error) {
	// 1. 初始化 MinIO 客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶是否存在，如果不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
	}
	return NewSnapshotStore(client, cfg.BucketName), nil
}

// NewSnapshotStore 基于已有客户端创建 SnapshotStore，不检查存储桶。
func NewSnapshotStore(client *minio.Client, bucketName string) *SnapshotStore {
	return &SnapshotStore{client: client, bucketName: bucketName}
}

// ObjectName 返回快照的对象路径：searches/YYYY/MM/DD/<id>.json（UTC 日期）。
func ObjectName(id string, createdAt time.Time) string {
	return fmt.Sprintf("searches/%s/%s.json", createdAt.UTC().Format("2006/01/02"), id)
}

// PutSnapshot 上传一份 JSON 快照。
func (s *SnapshotStore) PutSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	objectName := ObjectName(snap.ID, snap.CreatedAt)
	_, err = s.client.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", objectName, err)
	}
	return nil
}
