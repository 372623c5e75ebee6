package blobstore

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/ioutil"

	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
)

// S3Options 为 S3 后端的选项。Endpoint 非空时可接入 MinIO 等兼容服务。
type S3Options struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"accessKey"`
	SecretKey    string `mapstructure:"secretKey"`
	Prefix       string `mapstructure:"prefix"`
	UsePathStyle bool   `mapstructure:"usePathStyle"`
}

// S3API 为 S3Store 用到的客户端方法
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store 将数据存为 S3 对象，对象键为内容的 SHA-256。
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store 创建 S3 后端。
func NewS3Store(ctx context.Context, opts *S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 存储桶不能为空")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		provider := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""))
		loadOpts = append(loadOpts, config.WithCredentialsProvider(provider))
	}

	awsConf, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "无法加载 S3 配置")
	}

	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return NewS3StoreWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3StoreWithClient 用现成的客户端创建 S3 后端。
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) Put(ctx context.Context, data []byte) (string, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("将 %v 字节的数据上传至 S3", len(data)))()

	id := ContentID(data)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + id),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", wrapUnavailable(err, "无法将数据上传至 S3")
	}

	return id, nil
}

func (s *S3Store) Get(ctx context.Context, id string) ([]byte, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("从 S3 获取 '%v'", id))()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + id),
	})
	if err != nil {
		var noKey *s3Types.NoSuchKey
		var apiErr smithy.APIError
		if stderrors.As(err, &noKey) {
			return nil, errors.Wrapf(errorcode.ErrorBlobNotFound, "S3 中不存在 '%v'", id)
		} else if stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return nil, errors.Wrapf(errorcode.ErrorBlobNotFound, "S3 中不存在 '%v'", id)
		}

		return nil, wrapUnavailable(err, "无法从 S3 获取数据")
	}
	defer out.Body.Close()

	data, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return nil, wrapUnavailable(err, "无法从 S3 读取数据")
	}

	if err := VerifyContentID(id, data); err != nil {
		return nil, err
	}

	return data, nil
}
