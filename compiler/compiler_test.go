package compiler

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"cssmod/css"
	"cssmod/modules"
)

// writeTree creates files under root, keys are slash separated relative paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func newCompiler(t *testing.T, root string, options ...Option) *Compiler {
	t.Helper()

	c, err := New(root, zaptest.NewLogger(t), options...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func keys(t *testing.T, c *Compiler) []string {
	t.Helper()

	var res []string
	for _, path := range c.Inputs() {
		k, err := c.key(path)
		if err != nil {
			t.Fatalf("key() error = %v", err)
		}
		res = append(res, k)
	}
	return res
}

func TestNew_RootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.css": ""})

	if _, err := New(filepath.Join(root, "file.css"), nil); err == nil {
		t.Error("Expected error for file root")
	}
	if _, err := New(filepath.Join(root, "missing"), nil); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestAddModule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"web/app.css": ".a {}"})
	outside := filepath.Join(t.TempDir(), "other.css")
	writeTree(t, filepath.Dir(outside), map[string]string{"other.css": ""})

	c := newCompiler(t, root)
	if err := c.AddModule("web/app.css"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	// same file through absolute path is not added twice
	if err := c.AddModule(filepath.Join(root, "web", "app.css")); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	if got, want := keys(t, c), []string{"web/app.css"}; !reflect.DeepEqual(got, want) {
		t.Errorf("inputs = %v, want %v", got, want)
	}

	if err := c.AddModule("web/missing.css"); err == nil {
		t.Error("Expected error for missing module")
	}
	if err := c.AddModule("web"); err == nil {
		t.Error("Expected error for directory")
	}
	if err := c.AddModule(outside); err == nil || !strings.Contains(err.Error(), "outside of project root") {
		t.Errorf("AddModule(outside) error = %v", err)
	}
}

func TestAddModules(t *testing.T) {
	tree := map[string]string{
		".gitignore":                   "generated/\n",
		"app.css":                      "",
		"web/item2.css":                "",
		"web/item10.css":               "",
		"web/draft.wip.css":            "",
		"web/readme.md":                "",
		"web/deep/nested/theme.css":    "",
		"generated/out.css":            "",
		"node_modules/lib/reset.css":   "",
		"vendor/some/module/style.css": "",
	}

	tests := []struct {
		name    string
		pattern string
		options []Option
		want    []string
	}{
		{
			name:    "any depth",
			pattern: "*.css",
			want: []string{
				"app.css", "generated/out.css", "web/deep/nested/theme.css",
				"web/draft.wip.css", "web/item2.css", "web/item10.css",
			},
		},
		{
			name:    "gitignore respected",
			pattern: "*.css",
			options: []Option{WithGitignore(true)},
			want: []string{
				"app.css", "web/deep/nested/theme.css",
				"web/draft.wip.css", "web/item2.css", "web/item10.css",
			},
		},
		{
			name:    "excluded",
			pattern: "web/**/*.css",
			options: []Option{WithExclude("*.wip.css")},
			want:    []string{"web/deep/nested/theme.css", "web/item2.css", "web/item10.css"},
		},
		{
			name:    "anchored",
			pattern: "/app.css",
			want:    []string{"app.css"},
		},
		{
			name:    "nothing",
			pattern: "*.scss",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, tree)

			c := newCompiler(t, root, tt.options...)
			n, err := c.AddModules(tt.pattern)
			if err != nil {
				t.Fatalf("AddModules() error = %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("AddModules() = %d, want %d", n, len(tt.want))
			}
			if got := keys(t, c); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("inputs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddModules_EmptyPattern(t *testing.T) {
	c := newCompiler(t, t.TempDir())
	if _, err := c.AddModules("  "); err == nil {
		t.Error("Expected error for empty pattern")
	}
}

func TestBuild_NoInputs(t *testing.T) {
	c := newCompiler(t, t.TempDir())
	if _, err := c.Build(context.Background()); err == nil {
		t.Error("Expected error without inputs")
	}
}

func TestBuild_Canceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"app.css": ".a {}"})

	c := newCompiler(t, root)
	if err := c.AddModule("app.css"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Build(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuild_Mapping(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"web/shared/theme.css": ".dark { color: black; }",
		"web/app.css":          "@import \"shared/theme.css\";\n.x10 { margin: 0; }\n.x9 { padding: 0; }",
	})

	c := newCompiler(t, root, WithPackage("styles"), WithWindowsHost(true))
	if err := c.AddModule("web/app.css"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	res, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := ".theme__dark__0 { color: black; }\n.app__x10__1 { margin: 0; }\n.app__x9__2 { padding: 0; }\n"
	if res.Bundle != want {
		t.Errorf("Bundle = %q, want %q", res.Bundle, want)
	}

	src := res.Mapping
	if _, err := parser.ParseFile(token.NewFileSet(), MappingFile, src, 0); err != nil {
		t.Fatalf("generated mapping does not parse: %v\n%s", err, src)
	}
	for _, s := range []string{
		"// Code generated by cssmod; DO NOT EDIT.",
		"package styles",
		`import "cssmod/mapping"`,
		"WindowsHost(true)",
		`Add("web/app.css",`,
		`Add("web/shared/theme.css",`,
		`"dark", "theme__dark__0"`,
	} {
		if !strings.Contains(src, s) {
			t.Errorf("generated mapping misses %q:\n%s", s, src)
		}
	}

	// keys and pairs are in natural order
	if strings.Index(src, `"web/app.css"`) > strings.Index(src, `"web/shared/theme.css"`) {
		t.Errorf("module keys are not sorted:\n%s", src)
	}
	app := src[strings.Index(src, `"web/app.css"`):strings.Index(src, `"web/shared/theme.css"`)]
	if strings.Index(app, `"x9"`) > strings.Index(app, `"x10"`) {
		t.Errorf("local names are not sorted:\n%s", src)
	}
	// imported names are re-exported by importer
	if !strings.Contains(app, `"dark"`) {
		t.Errorf("importer does not re-export imported names:\n%s", src)
	}
}

func TestBuild_InvalidPackage(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"app.css": ".a {}"})

	c := newCompiler(t, root, WithPackage("my-styles"))
	if err := c.AddModule("app.css"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	if _, err := c.Build(context.Background()); err == nil {
		t.Error("Expected error for invalid package name")
	}
}

func TestBuild_MappingImport(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"app.css": ".a { color: red; }"})

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"same name", "example.com/site/mapping", `import "example.com/site/mapping"`, false},
		{"other name", "example.com/site/third_party/cssrt", `import mapping "example.com/site/third_party/cssrt"`, false},
		{"empty", "", "", true},
		{"relative", "../mapping", "", true},
		{"quoted", `a"b/mapping`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCompiler(t, root, WithMappingImport(tt.path))
			if err := c.AddModule("app.css"); err != nil {
				t.Fatalf("AddModule() error = %v", err)
			}
			res, err := c.Build(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error for invalid import path")
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if _, err := parser.ParseFile(token.NewFileSet(), MappingFile, res.Mapping, 0); err != nil {
				t.Fatalf("generated mapping does not parse: %v\n%s", err, res.Mapping)
			}
			if !strings.Contains(res.Mapping, tt.want) {
				t.Errorf("generated mapping misses %q:\n%s", tt.want, res.Mapping)
			}
		})
	}
}

func TestParseTrees(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"web/shared/theme.css": ".dark { color: black; }",
		"web/app.css":          "@import \"shared/theme.css\";\n.x { margin: 0; }",
	})

	t.Run("kept", func(t *testing.T) {
		c := newCompiler(t, root, WithParseTrees(true))
		if err := c.AddModule("web/app.css"); err != nil {
			t.Fatalf("AddModule() error = %v", err)
		}
		res, err := c.Build(context.Background())
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		trees, err := c.ParseTrees(res.Sheet)
		if err != nil {
			t.Fatalf("ParseTrees() error = %v", err)
		}
		if len(trees) != 2 {
			t.Fatalf("ParseTrees() returned %d trees, want 2: %v", len(trees), trees)
		}
		if !strings.Contains(trees["web/app.css"], ".x") {
			t.Errorf("app tree misses selector:\n%s", trees["web/app.css"])
		}
		if !strings.Contains(trees["web/app.css"], "import") {
			t.Errorf("app tree misses @import:\n%s", trees["web/app.css"])
		}
		if !strings.Contains(trees["web/shared/theme.css"], ".dark") {
			t.Errorf("theme tree misses selector:\n%s", trees["web/shared/theme.css"])
		}
	})

	t.Run("not kept", func(t *testing.T) {
		c := newCompiler(t, root)
		if err := c.AddModule("web/app.css"); err != nil {
			t.Fatalf("AddModule() error = %v", err)
		}
		res, err := c.Build(context.Background())
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		trees, err := c.ParseTrees(res.Sheet)
		if err != nil {
			t.Fatalf("ParseTrees() error = %v", err)
		}
		if len(trees) != 0 {
			t.Errorf("ParseTrees() = %v, want none", trees)
		}
	})
}

func TestBuild_StemCollision(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/button.css": ".x {}",
		"b/button.css": ".y {}",
	})

	for _, strict := range []bool{false, true} {
		c := newCompiler(t, root, WithStrict(strict))
		if _, err := c.AddModules("*.css"); err != nil {
			t.Fatalf("AddModules() error = %v", err)
		}
		_, err := c.Build(context.Background())
		if strict && !errors.Is(err, modules.ErrNameCollision) {
			t.Errorf("strict Build() error = %v, want name collision", err)
		}
		if !strict && err != nil {
			t.Errorf("Build() error = %v", err)
		}
	}
}

func TestCompile_WritesArtifacts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"app.css": ".a { color: red; }"})

	c := newCompiler(t, root)
	if err := c.AddModule("app.css"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}

	bundle := filepath.Join(root, "build", "css", "bundle.css")
	out := filepath.Join(root, "styles")
	res, err := c.Compile(context.Background(), bundle, out)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	data, err := os.ReadFile(bundle)
	if err != nil {
		t.Fatalf("bundle was not written: %v", err)
	}
	if string(data) != res.Bundle {
		t.Errorf("bundle = %q, want %q", data, res.Bundle)
	}
	data, err = os.ReadFile(filepath.Join(out, MappingFile))
	if err != nil {
		t.Fatalf("mapping was not written: %v", err)
	}
	if string(data) != res.Mapping {
		t.Error("mapping file differs from generated source")
	}

	// no staged files left behind
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("unexpected files in mapping directory: %v", entries)
	}
}

func TestCompile_ErrorWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.css":    "@import \"broken.css\";\n.a {}",
		"broken.css": ".b {\n  color: red;\n",
	})

	c := newCompiler(t, root)
	if err := c.AddModule("app.css"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}

	bundle := filepath.Join(root, "bundle.css")
	_, err := c.Compile(context.Background(), bundle, root)
	if !errors.Is(err, css.ErrUnterminatedRuleset) {
		t.Fatalf("Compile() error = %v, want unterminated ruleset", err)
	}
	for _, s := range []string{"app.css", "broken.css"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error %q does not name %s", err, s)
		}
	}

	if _, err := os.Stat(bundle); !os.IsNotExist(err) {
		t.Error("bundle must not be written on failure")
	}
	if _, err := os.Stat(filepath.Join(root, MappingFile)); !os.IsNotExist(err) {
		t.Error("mapping must not be written on failure")
	}
}

func TestWriteArtifacts_StageFailure(t *testing.T) {
	dir := t.TempDir()
	// a file in place of output directory makes staging of second artifact fail
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("failed to write blocker: %v", err)
	}

	first := filepath.Join(dir, "bundle.css")
	err := writeArtifacts([]artifact{
		{path: first, data: []byte("css")},
		{path: filepath.Join(blocker, "cssmod_mappings.go"), data: []byte("go")},
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Error("first artifact must not be written")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("staged files were not removed: %v", entries)
	}
}
