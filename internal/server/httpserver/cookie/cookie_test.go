package cookie

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{
			name:   "empty header",
			header: "",
			want:   map[string]string{},
		},
		{
			name:   "single cookie",
			header: "sid=abc",
			want:   map[string]string{"sid": "abc"},
		},
		{
			name:   "trims parts",
			header: "  sid=abc ;   admin_sid=def  ",
			want:   map[string]string{"sid": "abc", "admin_sid": "def"},
		},
		{
			name:   "percent decoded",
			header: "sid=a%20b%3Dc",
			want:   map[string]string{"sid": "a b=c"},
		},
		{
			name:   "undecodable kept raw",
			header: "sid=%E0%A4%A",
			want:   map[string]string{"sid": "%E0%A4%A"},
		},
		{
			name:   "second segment only",
			header: "sid=abc=def",
			want:   map[string]string{"sid": "abc"},
		},
		{
			name:   "no value",
			header: "flag",
			want:   map[string]string{"flag": ""},
		},
		{
			name:   "empty names dropped",
			header: "=orphan; ;sid=x",
			want:   map[string]string{"sid": "x"},
		},
		{
			name:   "later duplicate wins",
			header: "sid=first; sid=second",
			want:   map[string]string{"sid": "second"},
		},
		{
			name:   "empty value kept",
			header: "sid=",
			want:   map[string]string{"sid": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.header)
			if len(got) != len(tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.header, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Parse(%q)[%q] = %q, want %q", tt.header, k, got[k], v)
				}
			}
		})
	}
}

func TestGet_MultipleHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Add("Cookie", "a=1")
	r.Header.Add("Cookie", "sid=xyz")

	if got := Get(r, "sid"); got != "xyz" {
		t.Errorf("Get(sid) = %q, want xyz", got)
	}
	if got := Get(r, "missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestSpec_Set(t *testing.T) {
	spec := Spec{Name: "sid", MaxAge: 157680000, Secure: true}
	h := http.Header{}
	spec.Set(h, "0b6f7e4a-1c2d-4e5f-8a9b-0c1d2e3f4a5b")

	got := h.Get("Set-Cookie")
	for _, want := range []string{
		"sid=0b6f7e4a-1c2d-4e5f-8a9b-0c1d2e3f4a5b",
		"Path=/",
		"Max-Age=157680000",
		"HttpOnly",
		"Secure",
		"SameSite=Lax",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Set-Cookie %q missing %q", got, want)
		}
	}
}

func TestSpec_Clear(t *testing.T) {
	spec := Spec{Name: "admin_sid", MaxAge: 86400, Secure: true}
	h := http.Header{}
	spec.Clear(h)

	got := h.Get("Set-Cookie")
	if !strings.HasPrefix(got, "admin_sid=;") {
		t.Errorf("Set-Cookie = %q, want empty value", got)
	}
	if !strings.Contains(got, "Max-Age=0") {
		t.Errorf("Set-Cookie = %q, want Max-Age=0", got)
	}
}

func TestSpec_Insecure(t *testing.T) {
	h := http.Header{}
	Spec{Name: "sid", MaxAge: 60}.Set(h, "v")
	if strings.Contains(h.Get("Set-Cookie"), "Secure") {
		t.Errorf("Set-Cookie = %q, want no Secure attribute", h.Get("Set-Cookie"))
	}
}

func TestSpec_RoundTrip(t *testing.T) {
	spec := Spec{Name: "sid", MaxAge: 60}
	for _, value := range []string{"plain", "with space", "a=b;c", "żółw"} {
		t.Run(value, func(t *testing.T) {
			c := spec.Cookie(value)
			got := Parse(c.Name + "=" + c.Value)
			if got["sid"] != value {
				t.Errorf("round trip = %q, want %q", got["sid"], value)
			}
		})
	}
}
