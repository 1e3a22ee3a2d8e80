// Package update tells the user when a newer hyperdesk release is out.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const latestReleaseURL = "https://api.github.com/repos/matheuskafuri/hyperdesk/releases/latest"

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
}

// Checker looks up the latest published release.
type Checker struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

var defaultChecker = Checker{URL: latestReleaseURL, Client: http.DefaultClient, Timeout: 2 * time.Second}

// Check reports a release newer than currentVersion, or nil. Development
// builds are never checked and every failure is treated as "no update".
func Check(ctx context.Context, currentVersion string) *Result {
	latest, err := defaultChecker.Latest(ctx)
	if err != nil || !IsNewer(latest, currentVersion) {
		return nil
	}
	return &Result{LatestVersion: latest}
}

// Latest returns the tag of the latest release without its "v" prefix.
func (c Checker) Latest(ctx context.Context) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching latest release: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching latest release: %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("decoding release: %w", err)
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release has no tag")
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}

// IsNewer reports whether version latest is above current. Versions are
// dotted numbers with an optional "v" prefix; anything else, such as "dev",
// never compares as older.
func IsNewer(latest, current string) bool {
	l, ok := parseVersion(latest)
	if !ok {
		return false
	}
	c, ok := parseVersion(current)
	if !ok {
		return false
	}
	for i := 0; i < max(len(l), len(c)); i++ {
		var a, b int
		if i < len(l) {
			a = l[i]
		}
		if i < len(c) {
			b = c[i]
		}
		if a != b {
			return a > b
		}
	}
	return false
}

func parseVersion(v string) ([]int, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	// Pre-release and build suffixes are ignored.
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return nil, false
	}
	var out []int
	for _, part := range strings.Split(v, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
