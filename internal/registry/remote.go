package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/semver"
)

const (
	versionCacheSize = 128
	formulaCacheSize = 64

	// DefaultTimeout bounds every remote registry request.
	DefaultTimeout = 30 * time.Second
)

// Remote talks to a formula registry service over HTTP. Version listings and
// fetched formulas are cached per process.
type Remote struct {
	baseURL string
	token   string
	client  *http.Client

	versionCache *lru.Cache[string, []string]
	formulaCache *lru.Cache[string, *formula.Formula]
}

// metadataResponse is the wire form of a formula metadata lookup.
type metadataResponse struct {
	Name        string   `json:"name"`
	Versions    []string `json:"versions"`
	Description string   `json:"description,omitempty"`
}

// fetchResponse is the wire form of a single-version download.
type fetchResponse struct {
	Formula *formula.Formula `json:"formula"`
	Digest  string           `json:"digest,omitempty"`
}

// NewRemote returns a client for the registry at baseURL. An empty timeout
// falls back to DefaultTimeout.
func NewRemote(baseURL, token string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Sizes are positive constants, New cannot fail.
	versions, _ := lru.New[string, []string](versionCacheSize)
	formulas, _ := lru.New[string, *formula.Formula](formulaCacheSize)

	return &Remote{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		client:       &http.Client{Timeout: timeout},
		versionCache: versions,
		formulaCache: formulas,
	}
}

// BaseURL returns the configured registry endpoint.
func (r *Remote) BaseURL() string {
	return r.baseURL
}

// Versions lists the published versions of name, newest first.
func (r *Remote) Versions(ctx context.Context, name string) ([]string, error) {
	if cached, ok := r.versionCache.Get(name); ok {
		return cached, nil
	}

	var meta metadataResponse
	if err := r.getJSON(ctx, r.formulaURL(name), &meta); err != nil {
		return nil, err
	}

	versions := semver.Sort(meta.Versions)
	if len(versions) == 0 {
		return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %q", name))
	}
	r.versionCache.Add(name, versions)
	return versions, nil
}

// Has reports whether the registry publishes any version of name.
func (r *Remote) Has(ctx context.Context, name string) (bool, error) {
	_, err := r.Versions(ctx, name)
	if err != nil {
		if errors.Is(err, oerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Fetch downloads one version, payloads included, verifying the content
// digest when the response carries one.
func (r *Remote) Fetch(ctx context.Context, name, version string) (*formula.Formula, error) {
	key := name + "@" + version
	if cached, ok := r.formulaCache.Get(key); ok {
		return cached, nil
	}

	var resp fetchResponse
	if err := r.getJSON(ctx, r.formulaURL(name)+"/"+url.PathEscape(version), &resp); err != nil {
		return nil, err
	}
	if resp.Formula == nil {
		return nil, oerrors.Wrap(oerrors.ErrRegistry, fmt.Sprintf("empty response for %s", key))
	}

	if resp.Digest != "" {
		if got := ContentDigest(resp.Formula); got != resp.Digest {
			return nil, oerrors.Wrap(oerrors.ErrIntegrity,
				fmt.Sprintf("digest mismatch for %s: expected %s, got %s", key, resp.Digest, got))
		}
	}

	r.formulaCache.Add(key, resp.Formula)
	return resp.Formula, nil
}

// Search queries the registry by name or keyword.
func (r *Remote) Search(ctx context.Context, query string) ([]Info, error) {
	u := r.baseURL + "/v1/search?q=" + url.QueryEscape(query)

	var out []Info
	if err := r.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Source = "remote"
	}
	return out, nil
}

// Publish uploads a formula version. The server rejects republishing an
// existing stable version.
func (r *Remote) Publish(ctx context.Context, f *formula.Formula) error {
	body, err := json.Marshal(fetchResponse{Formula: f, Digest: ContentDigest(f)})
	if err != nil {
		return fmt.Errorf("serializing %s: %w", f.Ref(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/formulas", bytes.NewReader(body))
	if err != nil {
		return oerrors.Wrapf(oerrors.ErrNetwork, err, "publishing %s", f.Ref())
	}
	req.Header.Set("Content-Type", "application/json")
	r.authorize(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return oerrors.Wrapf(oerrors.ErrNetwork, err, "publishing %s", f.Ref())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return oerrors.Wrap(oerrors.ErrAlreadyExists, f.Ref())
	}
	if err := statusError(resp.StatusCode, f.Ref()); err != nil {
		return err
	}

	// The published listing changed; drop the stale cache entry.
	r.versionCache.Remove(f.Name)
	return nil
}

func (r *Remote) formulaURL(name string) string {
	escaped := url.PathEscape(name)
	// Scoped names keep their separator in the path.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return r.baseURL + "/v1/formulas/" + escaped
}

func (r *Remote) authorize(req *http.Request) {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
}

func (r *Remote) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return oerrors.Wrapf(oerrors.ErrNetwork, err, "requesting %s", u)
	}
	req.Header.Set("Accept", "application/json")
	r.authorize(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return oerrors.Wrapf(oerrors.ErrNetwork, err, "requesting %s", u)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, u); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return oerrors.Wrapf(oerrors.ErrNetwork, err, "reading response from %s", u)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return oerrors.Wrapf(oerrors.ErrRegistry, err, "decoding response from %s", u)
	}
	return nil
}

// statusError maps a non-2xx registry response to the error taxonomy.
func statusError(status int, subject string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return oerrors.Wrap(oerrors.ErrNotFound, subject)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return oerrors.Wrap(oerrors.ErrPermission, fmt.Sprintf("access denied: %s", subject))
	case status >= 500:
		return oerrors.Wrap(oerrors.ErrRegistry, fmt.Sprintf("registry returned %d for %s", status, subject))
	default:
		return oerrors.Wrap(oerrors.ErrRegistry, fmt.Sprintf("unexpected status %d for %s", status, subject))
	}
}

// ContentDigest computes the sha256 digest of a formula's payloads in
// path-sorted order. Both ends of a transfer derive it the same way.
func ContentDigest(f *formula.Formula) string {
	files := make([]formula.File, len(f.Files))
	copy(files, f.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	h := sha256.New()
	for _, file := range files {
		h.Write([]byte(file.Path))
		h.Write([]byte{0})
		h.Write([]byte(file.Content))
		h.Write([]byte{0})
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}
