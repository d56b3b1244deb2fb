package preset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/moyoez/devconf/tool"
)

// FileDescriptor is one entry of a repository directory listing.
type FileDescriptor struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url"`
	Type        string `json:"type"`
}

// MaxManifestSize bounds a downloaded manifest.
const MaxManifestSize = 1 << 20

// Repository lists and downloads presets from a directory-listing http api.
type Repository struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewRepository uses client (tool.GetHttpClient when nil) and allows perSecond requests.
func NewRepository(client *http.Client, perSecond float64) *Repository {
	if client == nil {
		client = tool.GetHttpClient()
	}
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Repository{client: client, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (r *Repository) get(ctx context.Context, url string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := tool.NewHTTPReqWithApplication(http.NewRequestWithContext(ctx, http.MethodGet, url, nil))
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Debugf("Closing %s: %v", url, err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxManifestSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxManifestSize {
		return nil, fmt.Errorf("GET %s: response larger than %d bytes", url, MaxManifestSize)
	}
	return body, nil
}

// FetchIndex returns the listing at url.
func (r *Repository) FetchIndex(ctx context.Context, url string) ([]FileDescriptor, error) {
	body, err := r.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var index []FileDescriptor
	if err := sonic.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", url, err)
	}
	return index, nil
}

// Download fetches one file body.
func (r *Repository) Download(ctx context.Context, url string) ([]byte, error) {
	return r.get(ctx, url)
}

// Sync mirrors every preset folder of the listing into dir as <folder>/preset.yaml.
// Manifests that do not parse are skipped. It returns the number of presets written.
func (r *Repository) Sync(ctx context.Context, indexURL, dir string) (int, error) {
	index, err := r.FetchIndex(ctx, indexURL)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range index {
		if entry.Type != "dir" {
			continue
		}
		children, err := r.FetchIndex(ctx, indexURL+"/"+entry.Name)
		if err != nil {
			return count, err
		}
		for _, child := range children {
			if child.Type != "file" || child.Name != ManifestName || child.DownloadURL == "" {
				continue
			}
			body, err := r.Download(ctx, child.DownloadURL)
			if err != nil {
				return count, err
			}
			if _, err := Parse(body); err != nil {
				tool.DefaultLogger.Warnf("Skipping remote preset %s: %v", child.Path, err)
				continue
			}
			folder := filepath.Join(dir, filepath.Base(entry.Name))
			if err := os.MkdirAll(folder, 0o755); err != nil {
				return count, err
			}
			if err := os.WriteFile(filepath.Join(folder, ManifestName), body, 0o644); err != nil {
				return count, err
			}
			count++
		}
	}
	tool.DefaultLogger.Infof("Synced %d presets from %s", count, indexURL)
	return count, nil
}
