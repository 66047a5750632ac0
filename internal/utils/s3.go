package utils

import (
	"os"

	"geo-compare/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// OpenS3FromEnv：按 S3_* 环境变量创建 S3 兼容客户端；未配置 S3_ENDPOINT 时返回 nil
func OpenS3FromEnv() (*minio.Client, error) {
	endpoint := os.Getenv("S3_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_SECRET_KEY"), ""),
		Secure: os.Getenv("S3_USE_SSL") == "true",
		Region: os.Getenv("S3_REGION"),
	})
	if err != nil {
		return nil, err
	}
	logger.L().Debug("s3_env", "endpoint", endpoint)
	return c, nil
}
