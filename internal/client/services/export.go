package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/logging"
)

var ErrExportDisabled = errors.New("audit export is not configured")

type objectUploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig
	newS3Client          = func(cfg aws.Config, optFns ...func(*s3.Options)) objectUploader {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ExportSettings points the exporter at an S3-compatible bucket. An empty
// bucket disables export.
type ExportSettings struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// AuditExporter uploads audit streams as JSON lines for off-host retention.
type AuditExporter struct {
	settings ExportSettings
	gate     *Gate
	audit    *AuditLog
	store    *CredentialStore
	log      logging.Logger
	now      func() time.Time

	client objectUploader
}

func NewAuditExporter(settings ExportSettings, gate *Gate, audit *AuditLog, store *CredentialStore, log logging.Logger) *AuditExporter {
	return &AuditExporter{
		settings: settings,
		gate:     gate,
		audit:    audit,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

func (e *AuditExporter) Enabled() bool {
	return e.settings.Bucket != ""
}

func (e *AuditExporter) getClient(ctx context.Context) (objectUploader, error) {
	if e.client != nil {
		return e.client, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(e.settings.Region)}
	if e.settings.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			e.settings.AccessKeyID,
			e.settings.SecretAccessKey,
			"",
		)))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	e.client = newS3Client(cfg, func(o *s3.Options) {
		if e.settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(e.settings.Endpoint)
		}
		o.UsePathStyle = e.settings.UsePathStyle
	})
	return e.client, nil
}

// ObjectKey is where a stream export is stored.
func ObjectKey(installID string, stream models.Stream, at time.Time) string {
	return fmt.Sprintf("audit/%s/%s-%s.jsonl", installID, stream, at.UTC().Format("20060102T150405Z"))
}

// Export uploads the whole stream and returns the object key and the number
// of exported events. Only the owner may export.
func (e *AuditExporter) Export(ctx context.Context, stream models.Stream) (string, int, error) {
	if !e.Enabled() {
		return "", 0, ErrExportDisabled
	}
	if !e.gate.CurrentUserIsAdmin(ctx) {
		return "", 0, common.Fail(common.ErrorUnauthorized, msgAdminRequired)
	}

	events, err := e.audit.All(ctx, stream)
	if err != nil {
		return "", 0, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return "", 0, fmt.Errorf("encode event %d: %w", events[i].ID, err)
		}
	}

	installID, err := e.store.InstallID(ctx)
	if err != nil {
		return "", 0, err
	}
	key := ObjectKey(installID, stream, e.now())

	client, err := e.getClient(ctx)
	if err != nil {
		return "", 0, err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.settings.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})

	actor := ""
	if u := e.gate.GetCurrentUser(); u != nil {
		actor = u.Username
	}
	if err != nil {
		e.audit.Record(ctx, ActionAuditExport, actor, common.FailureOutcome(err.Error()))
		return "", 0, fmt.Errorf("upload %s: %w", key, err)
	}
	e.audit.Record(ctx, ActionAuditExport, actor, common.OutcomeSuccess)
	e.log.Info(ctx, "audit stream exported", "stream", stream, "key", key, "events", len(events))
	return key, len(events), nil
}
