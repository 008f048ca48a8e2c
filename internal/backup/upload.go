package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/julianstephens/rehab/internal/logger"
)

// EnvCredentialsFile names a service-account key used for uploads. Without
// it the default application credentials apply.
const EnvCredentialsFile = "REHAB_GCS_CREDENTIALS"

// Target is a parsed gs://bucket/prefix destination
type Target struct {
	Bucket string
	Prefix string
}

// ParseTarget accepts gs://bucket or gs://bucket/some/prefix
func ParseTarget(raw string) (Target, error) {
	rest, ok := strings.CutPrefix(raw, "gs://")
	if !ok {
		return Target{}, fmt.Errorf("upload target must start with gs://: %q", raw)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Target{}, fmt.Errorf("upload target has no bucket: %q", raw)
	}
	return Target{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// Object is the object name a local file is stored under
func (t Target) Object(file string) string {
	if t.Prefix == "" {
		return file
	}
	return path.Join(t.Prefix, file)
}

func (t Target) String() string {
	return "gs://" + t.Bucket + "/" + t.Object("")
}

// Uploader copies snapshots to Cloud Storage
type Uploader struct {
	client *storage.Client
}

// NewUploader builds a Cloud Storage client. A credentials file is checked up front.
func NewUploader(ctx context.Context, credentialsFile string) (*Uploader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &Uploader{client: client}, nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}

// Upload streams the snapshot to target and returns the gs:// URL written
func (u *Uploader) Upload(ctx context.Context, info Info, target Target) (string, error) {
	f, err := os.Open(info.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open backup %s: %w", info.Path, err)
	}
	defer f.Close()

	object := target.Object(info.Name())
	w := u.client.Bucket(target.Bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/vnd.sqlite3"
	w.Metadata = map[string]string{"created": info.Timestamp.UTC().Format("2006-01-02T15:04:05Z")}

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", info.Name(), err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload of %s: %w", info.Name(), err)
	}

	url := fmt.Sprintf("gs://%s/%s", target.Bucket, object)
	logger.Info("Uploaded backup", "url", url)
	return url, nil
}
