package recognition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

var _ Backend = (*TextractBackend)(nil)

// TextractAPI 是 TextractBackend 使用的 textract.Client 子集
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

type TextractConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
}

// TextractBackend 使用 AWS Textract 同步接口识别页面
type TextractBackend struct {
	client        TextractAPI
	minConfidence float32
}

func NewTextractBackend(ctx context.Context, cfg TextractConfig) (*TextractBackend, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewTextractBackendWithClient(client, cfg.MinConfidence), nil
}

func NewTextractBackendWithClient(client TextractAPI, minConfidence float32) *TextractBackend {
	return &TextractBackend{client: client, minConfidence: minConfidence}
}

func (b *TextractBackend) Name() string { return "textract" }

// Extract 忽略提示词，Textract 只接收图像
func (b *TextractBackend) Extract(ctx context.Context, req *Request) (string, error) {
	out, err := b.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: req.Image},
	})
	if err != nil {
		return "", fmt.Errorf("failed to detect document text: %w", err)
	}
	if out == nil {
		return "", errors.New("textract returned no output")
	}

	var lines []string
	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if block.Confidence != nil && *block.Confidence < b.minConfidence {
			lines = append(lines, "[unclear]")
			continue
		}
		lines = append(lines, *block.Text)
	}

	return strings.Join(lines, "\n"), nil
}

func (b *TextractBackend) Close() error { return nil }
