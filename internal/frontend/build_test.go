package frontend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestNormalizeBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"  ", "/"},
		{"magic-8-ball", "/magic-8-ball/"},
		{"/magic-8-ball", "/magic-8-ball/"},
		{"/magic-8-ball/", "/magic-8-ball/"},
		{"//a//b//", "/a//b/"},
		{"https://example.github.io/magic-8-ball/", "/magic-8-ball/"},
		{"https://example.com", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBase(tt.in))
		})
	}
}

func TestBaseFromEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	assert.Equal(t, "/", BaseFromEnv())

	t.Setenv(EnvBaseURL, "/eightball")
	assert.Equal(t, "/eightball/", BaseFromEnv())
}

func writeSources(t *testing.T, mainTS string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.ts"), []byte(mainTS), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.css"), []byte(".ball { color: black; }\n"), 0600))
	return dir
}

func TestBuild_BakesInBase(t *testing.T) {
	src := writeSources(t, `import "./app.css";
const base: string = import.meta.env.BASE_URL;
console.log("base=" + base);
`)
	out := filepath.Join(t.TempDir(), "dist")

	result, err := Build(BuildConfig{Base: "/sub", SourceDir: src, OutDir: out})
	require.NoError(t, err)

	assert.Contains(t, result.JS, `"/sub/"`)
	assert.NotContains(t, result.JS, "import.meta")
	assert.Contains(t, result.CSS, ".ball")

	js, err := os.ReadFile(filepath.Join(out, "app.js"))
	require.NoError(t, err)
	assert.Equal(t, result.JS, string(js))
	_, err = os.Stat(filepath.Join(out, "app.css"))
	assert.NoError(t, err)
}

func TestBuild_Minify(t *testing.T) {
	src := writeSources(t, `import "./app.css";
function veryLongFunctionName(argumentNumberOne: number): number { return argumentNumberOne * 2; }
console.log(veryLongFunctionName(21));
`)

	plain, err := Build(BuildConfig{SourceDir: src})
	require.NoError(t, err)
	minified, err := Build(BuildConfig{SourceDir: src, Minify: true})
	require.NoError(t, err)

	assert.Less(t, len(minified.JS), len(plain.JS))
}

func TestBuild_ReportsErrors(t *testing.T) {
	src := writeSources(t, `import "./missing";`)

	_, err := Build(BuildConfig{SourceDir: src})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "esbuild errors")
}

func TestRewriteAssetRefs(t *testing.T) {
	const page = `<!doctype html><html><head>
<link rel="stylesheet" href="/static/app.css">
<link rel="icon" href="https://cdn.example.com/icon.png">
<script src="//cdn.example.com/lib.js"></script>
<script src="/static/app.js"></script>
</head><body><img src="/static/ball.svg"><a href="/about">about</a></body></html>`

	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)

	n := RewriteAssetRefs(doc, "/eightball")
	assert.Equal(t, 3, n)

	var buf strings.Builder
	require.NoError(t, html.Render(&buf, doc))
	out := buf.String()

	assert.Contains(t, out, `href="/eightball/static/app.css"`)
	assert.Contains(t, out, `src="/eightball/static/app.js"`)
	assert.Contains(t, out, `src="/eightball/static/ball.svg"`)
	assert.Contains(t, out, `href="https://cdn.example.com/icon.png"`)
	assert.Contains(t, out, `src="//cdn.example.com/lib.js"`)
	assert.Contains(t, out, `href="/about"`, "anchors are not assets")

	assert.Equal(t, 0, RewriteAssetRefs(doc, "/eightball"), "second pass is a no-op")
}

func TestRewriteAssetRefs_RootBase(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<script src="/static/app.js"></script>`))
	require.NoError(t, err)
	assert.Equal(t, 0, RewriteAssetRefs(doc, "/"))
}
