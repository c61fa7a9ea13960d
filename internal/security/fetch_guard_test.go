package security

import (
	"testing"
	"time"
)

// TestValidateURL_AllowsPublicHTTPS は公開URLが許可されることを検証する。
func TestValidateURL_AllowsPublicHTTPS(t *testing.T) {
	g := NewFetchGuard()

	urls := []string{
		"https://ncode.syosetu.com/n4830bu/",
		"https://kakuyomu.jp/works/1177354054880238351",
		"http://example.com/feed",
		"https://93.184.216.34/page",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
}

// TestValidateURL_BlocksPrivateIPs はプライベートIPがブロックされることを検証する。
func TestValidateURL_BlocksPrivateIPs(t *testing.T) {
	g := NewFetchGuard()

	urls := []string{
		"http://10.0.0.1/admin",
		"http://172.16.0.1/",
		"http://192.168.1.1/router",
		"http://127.0.0.1:80/",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/",
		"http://[::1]/",
		"http://[fe80::1]/",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, ブロックされるべき", u)
		}
	}
}

// TestValidateURL_BlocksLocalhost はlocalhostがブロックされることを検証する。
func TestValidateURL_BlocksLocalhost(t *testing.T) {
	g := NewFetchGuard()

	if err := g.ValidateURL("http://localhost:8080/health"); err == nil {
		t.Error("localhostがブロックされなかった")
	}
	if err := g.ValidateURL("http://LOCALHOST/"); err == nil {
		t.Error("大文字LOCALHOSTがブロックされなかった")
	}
}

// TestValidateURL_BlocksDisallowedSchemes はhttp/https以外のスキームを拒否することを検証する。
func TestValidateURL_BlocksDisallowedSchemes(t *testing.T) {
	g := NewFetchGuard()

	urls := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"gopher://example.com/",
		"javascript:alert(1)",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, スキーム拒否されるべき", u)
		}
	}
}

// TestValidateURL_RejectsMalformed は不正なURLを拒否することを検証する。
func TestValidateURL_RejectsMalformed(t *testing.T) {
	g := NewFetchGuard()

	urls := []string{
		"",
		"https://",
		"not a url",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, 拒否されるべき", u)
		}
	}
}

// TestNewSafeClient_ReturnsClient はタイムアウト付きクライアントが生成されることを検証する。
func TestNewSafeClient_ReturnsClient(t *testing.T) {
	g := NewFetchGuard()

	client := g.NewSafeClient(10 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClientがnilを返した")
	}
}
