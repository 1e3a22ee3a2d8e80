package update

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func releaseServer(t *testing.T, status int, body string) Checker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github+json" {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return Checker{URL: srv.URL, Client: srv.Client()}
}

func TestLatest(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"tag", http.StatusOK, `{"tag_name":"v1.2.0"}`, "1.2.0", false},
		{"tag without prefix", http.StatusOK, `{"tag_name":"0.3.1"}`, "0.3.1", false},
		{"no tag", http.StatusOK, `{}`, "", true},
		{"server error", http.StatusInternalServerError, ``, "", true},
		{"bad json", http.StatusOK, `{`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := releaseServer(t, tt.status, tt.body)
			got, err := c.Latest(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Latest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Latest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"1.2.0", "v1.1.0", true},
		{"1.10.0", "1.9.3", true},
		{"1.2", "1.1.9", true},
		{"1.2.0", "1.2.0", false},
		{"1.2.0", "1.2", false},
		{"1.1.0", "1.2.0", false},
		{"1.3.0", "1.2.0-rc1", true},
		{"1.2.0", "dev", false},
		{"nightly", "1.0.0", false},
	}
	for _, tt := range tests {
		if got := IsNewer(tt.latest, tt.current); got != tt.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}
}
