package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// layers lists, per package prefix under internal/, which internal packages it may not import.
var layers = []struct {
	prefix     string
	disallowed []string
}{
	{prefix: "internal/domain/", disallowed: []string{"services", "clients", "http", "app", "cli", "data", "observability"}},
	{prefix: "internal/pkg/", disallowed: []string{"services", "clients", "http", "app", "cli", "data", "domain"}},
	{prefix: "internal/platform/", disallowed: []string{"services", "clients", "http", "app", "cli"}},
	{prefix: "internal/observability/", disallowed: []string{"services", "clients", "http", "app", "cli"}},
	{prefix: "internal/clients/", disallowed: []string{"services", "http", "app", "cli", "data"}},
	{prefix: "internal/data/", disallowed: []string{"services", "clients", "http", "app", "cli"}},
	{prefix: "internal/services/", disallowed: []string{"http", "app", "cli"}},
	{prefix: "internal/http/", disallowed: []string{"app", "cli"}},
	{prefix: "internal/app/", disallowed: []string{"cli"}},
}

func TestImportBoundaries(t *testing.T) {
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	type violation struct {
		file string
		imp  string
	}
	var violations []violation
	fset := token.NewFileSet()

	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		disallowed := disallowedFor(modulePath, rel)
		if len(disallowed) == 0 {
			return nil
		}

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			for _, bad := range disallowed {
				if imp == bad || strings.HasPrefix(imp, bad+"/") {
					violations = append(violations, violation{file: rel, imp: imp})
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q\n", v.file, v.imp)
		}
		t.Fatal(b.String())
	}
}

func disallowedFor(modulePath, rel string) []string {
	for _, l := range layers {
		if !strings.HasPrefix(rel, l.prefix) {
			continue
		}
		out := make([]string, 0, len(l.disallowed))
		for _, pkg := range l.disallowed {
			out = append(out, modulePath+"/internal/"+pkg)
		}
		return out
	}
	return nil
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
