package webassets

import (
	"io/fs"
	"strings"
	"testing"
)

func TestFallbackFS(t *testing.T) {
	fsys := FallbackFS()
	for name, mention := range map[string]string{
		"maintenance.html": "maintenance",
		"404.html":         "404",
	} {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(strings.ToLower(string(data)), mention) {
			t.Fatalf("%s does not mention %q", name, mention)
		}
	}
}

func TestSiteFS(t *testing.T) {
	fsys, ok := SiteFS()
	if !ok {
		t.Fatal("embedded site has no index.html")
	}
	for _, name := range []string{"index.html", "assets/app.js", "assets/app.css"} {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}

func TestSiteFS_ShellLoadsAppScript(t *testing.T) {
	fsys, _ := SiteFS()
	data, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `src="/assets/app.js"`) {
		t.Fatal("index.html does not load the app script")
	}
}
