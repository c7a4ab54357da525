package report

import (
	"bytes"
	"context"
	"flowtagger/internal/config"
	"flowtagger/internal/factory"
	"flowtagger/internal/model"
	"fmt"
	"io"
	"path"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("minio", func(cfg *config.Config, def config.WriterDef) (model.Writer, error) {
		mc := def.Minio
		if mc.Endpoint == "" || mc.Bucket == "" {
			return nil, fmt.Errorf("minio.endpoint and minio.bucket must be set")
		}
		client, err := minio.New(mc.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(mc.AccessKeyID, mc.SecretAccessKey, ""),
			Secure: mc.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init minio client: %w", err)
		}
		return NewMinioWriter(client, mc.Bucket, mc.ObjectPrefix), nil
	})
}

// objectPutter is the subset of *minio.Client the writer needs.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioWriter uploads the rendered text report to an S3 compatible bucket.
type MinioWriter struct {
	client objectPutter
	bucket string
	prefix string
}

// NewMinioWriter creates a writer that stores reports under prefix in bucket.
func NewMinioWriter(client objectPutter, bucket, prefix string) *MinioWriter {
	return &MinioWriter{client: client, bucket: bucket, prefix: prefix}
}

func (w *MinioWriter) Name() string {
	return "minio:" + w.bucket
}

// ObjectName returns the key a report generated at t is stored under.
func (w *MinioWriter) ObjectName(t time.Time) string {
	return path.Join(w.prefix, fmt.Sprintf("report_%s.txt", t.UTC().Format(snapshotTimeFormat)))
}

func (w *MinioWriter) Write(ctx context.Context, report *model.Report) error {
	var buf bytes.Buffer
	if err := Render(&buf, report); err != nil {
		return err
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	object := w.ObjectName(generated)

	info, err := w.client.PutObject(ctx, w.bucket, object, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "text/plain",
		UserMetadata: map[string]string{
			"source":  report.Source,
			"records": fmt.Sprintf("%d", report.Stats.Records),
		},
	})
	if err != nil {
		return model.NewPathError(model.ErrWriteFailure, w.bucket+"/"+object, err)
	}

	log.WithField("component", "minio").Infof("Uploaded report to %s/%s (%d bytes)", info.Bucket, info.Key, info.Size)
	return nil
}
