package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		hops       int
		want       string
	}{
		{name: "no hops ignores XFF", remoteAddr: "10.0.0.1:1234", xff: "203.0.113.50", want: "10.0.0.1"},
		{name: "public peer ignores XFF", remoteAddr: "203.0.113.1:1234", xff: "10.0.0.1", hops: 1, want: "203.0.113.1"},
		{name: "one hop takes rightmost", remoteAddr: "10.0.0.1:1234", xff: "198.51.100.7, 203.0.113.50", hops: 1, want: "203.0.113.50"},
		{name: "two hops takes second from end", remoteAddr: "10.0.0.1:1234", xff: "198.51.100.7, 203.0.113.50, 10.0.0.9", hops: 2, want: "203.0.113.50"},
		{name: "fewer entries than hops", remoteAddr: "10.0.0.1:1234", xff: "203.0.113.50", hops: 2, want: "10.0.0.1"},
		{name: "garbage entry falls back to peer", remoteAddr: "10.0.0.1:1234", xff: "not-an-ip", hops: 1, want: "10.0.0.1"},
		{name: "loopback proxy trusted", remoteAddr: "127.0.0.1:1234", xff: "203.0.113.50", hops: 1, want: "203.0.113.50"},
		{name: "ipv6 peer", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "missing port", remoteAddr: "203.0.113.1", want: "203.0.113.1"},
		{name: "empty remote", remoteAddr: "", want: "0.0.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientAddr(r, tt.hops); got != tt.want {
				t.Fatalf("clientAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP_StripsForwardedFromUntrustedPeer(t *testing.T) {
	var gotIP, gotXFF, gotProto string
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = ClientIPFromContext(r.Context())
		gotXFF = r.Header.Get("X-Forwarded-For")
		gotProto = r.Header.Get("X-Forwarded-Proto")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.1:5555"
	r.Header.Set("X-Forwarded-For", "10.1.1.1")
	r.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if gotIP != "203.0.113.1" {
		t.Fatalf("ip = %q", gotIP)
	}
	if gotXFF != "" || gotProto != "" {
		t.Fatalf("forwarded headers not stripped: xff=%q proto=%q", gotXFF, gotProto)
	}
}

func TestWithClientIP_EmptyLeavesContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithClientIP(r.Context(), "")
	if got := ClientIPFromContext(ctx); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
