package browser

import "testing"

func TestCheckScheme(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com", false},
		{"http://example.com", false},
		{"hyper://" + "abc123" + "/blog/hello.md", false},
		{"hyper:///nohost", true},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"ftp://example.com", true},
		{"", true},
	}

	for _, tt := range tests {
		err := check(tt.url)
		if tt.wantErr && err == nil {
			t.Errorf("check(%q): expected error, got nil", tt.url)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("check(%q): unexpected error %v", tt.url, err)
		}
	}
}

func TestOpenRejectsBeforeLaunching(t *testing.T) {
	if err := Open("file:///etc/passwd"); err == nil {
		t.Error("expected Open to refuse file URLs")
	}
}
