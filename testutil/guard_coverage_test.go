package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const testForbiddenImport = "some/forbidden/package"

// TestAssertNoDirectImportsSuccess tests the success path with allowed imports
func TestAssertNoDirectImportsSuccess(t *testing.T) {
	dir := t.TempDir()

	// Create a file with allowed imports
	src := []byte(`package tmp
import "fmt"
import "os"
func X() { fmt.Println("test") }`)
	if err := os.WriteFile(filepath.Join(dir, "test.go"), src, 0o600); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	// This should succeed because we're not forbidding these imports
	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == testForbiddenImport
	}, "should allow fmt and os")
}

// TestAssertNoDirectImportsWithTestFiles tests that _test.go files are ignored
func TestAssertNoDirectImportsWithTestFiles(t *testing.T) {
	dir := t.TempDir()

	// Create a regular file with safe imports
	src1 := []byte(`package tmp
import "fmt"
func X() { fmt.Println("test") }`)
	if err := os.WriteFile(filepath.Join(dir, "main.go"), src1, 0o600); err != nil {
		t.Fatalf("write main file: %v", err)
	}

	// Create a test file with forbidden imports (should be ignored)
	src2 := []byte(`package tmp
import "testing"
import "` + testForbiddenImport + `"
func TestX(t *testing.T) {}`)
	if err := os.WriteFile(filepath.Join(dir, "main_test.go"), src2, 0o600); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	// This should not fail because test files are ignored
	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == testForbiddenImport
	}, "should ignore test files")
}

// TestAssertNoDirectImportsWithDirectories tests that directories are ignored
func TestAssertNoDirectImportsWithDirectories(t *testing.T) {
	dir := t.TempDir()

	// Create a subdirectory
	subdir := filepath.Join(dir, "subdir")
	if err := os.Mkdir(subdir, 0o750); err != nil {
		t.Fatalf("create subdir: %v", err)
	}

	// Create a file in the subdirectory with forbidden imports
	src := []byte(`package subpkg
import "forbidden/package"
func X() {}`)
	if err := os.WriteFile(filepath.Join(subdir, "sub.go"), src, 0o600); err != nil {
		t.Fatalf("write subdir file: %v", err)
	}

	// Create a safe file in the main directory
	safeSrc := []byte(`package tmp
import "fmt"
func Y() { fmt.Println("safe") }`)
	if err := os.WriteFile(filepath.Join(dir, "safe.go"), safeSrc, 0o600); err != nil {
		t.Fatalf("write safe file: %v", err)
	}

	// This should not fail because subdirectories are not scanned
	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == "forbidden/package"
	}, "should ignore subdirectories")
}

// TestAssertNoDirectImportsWithNonGoFiles tests that non-.go files are ignored
func TestAssertNoDirectImportsWithNonGoFiles(t *testing.T) {
	dir := t.TempDir()

	// Create a non-Go file
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("some text"), 0o600); err != nil {
		t.Fatalf("write txt file: %v", err)
	}

	// Create a Go file with safe imports
	src := []byte(`package tmp
import "fmt"
func X() { fmt.Println("test") }`)
	if err := os.WriteFile(filepath.Join(dir, "main.go"), src, 0o600); err != nil {
		t.Fatalf("write go file: %v", err)
	}

	// This should not fail
	AssertNoDirectImports(t, dir, func(_ string) bool {
		return false // forbid nothing
	}, "should ignore non-go files")
}

// TestAssertNoDirectImportsWithEmptyDirectory tests behavior with empty directory
func TestAssertNoDirectImportsWithEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	// Empty directory should not cause any issues
	AssertNoDirectImports(t, dir, func(string) bool { return true }, "should handle empty directory")
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

// TestImporterViolations checks the facade rule on a synthetic package graph.
func TestImporterViolations(t *testing.T) {
	pkg := func(path string, imports ...string) *packages.Package {
		p := &packages.Package{PkgPath: path, Imports: map[string]*packages.Package{}}
		for _, imp := range imports {
			p.Imports[imp] = &packages.Package{PkgPath: imp}
		}
		return p
	}
	pkgs := []*packages.Package{
		pkg("m/internal/blob", "m/internal/infra/blob/fs"),
		pkg("m/internal/infra/blob/fs", "m/internal/infra/blob/core"),
		pkg("m/internal/export", "m/internal/blob"),
		pkg("m/cmd/tool", "m/internal/infra/blob/s3", "m/internal/infra/blobby"),
	}
	got := importerViolations(pkgs, "m/internal/infra/blob", []string{"m/internal/blob"})
	if len(got) != 1 || got[0] != "m/cmd/tool imports m/internal/infra/blob/s3" {
		t.Fatalf("unexpected violations %v", got)
	}
}

// TestLoadReportsPackageErrors stubs the loader to cover the error path.
func TestLoadReportsPackageErrors(t *testing.T) {
	orig := loadPackages
	t.Cleanup(func() { loadPackages = orig })

	loadPackages = func(*packages.Config, ...string) ([]*packages.Package, error) {
		return []*packages.Package{{
			PkgPath: "m/broken",
			Errors:  []packages.Error{{Msg: "no Go files"}},
		}}, nil
	}
	if _, err := transitiveDependencyViolations(".", "./broken", func(string) bool { return false }); err == nil || !strings.Contains(err.Error(), "no Go files") {
		t.Fatalf("expected package error, got %v", err)
	}

	loadPackages = func(*packages.Config, ...string) ([]*packages.Package, error) {
		leaf := &packages.Package{PkgPath: "net/http"}
		mid := &packages.Package{PkgPath: "m/mid", Imports: map[string]*packages.Package{"net/http": leaf}}
		root := &packages.Package{PkgPath: "m/root", Imports: map[string]*packages.Package{"m/mid": mid, "net/http": leaf}}
		return []*packages.Package{root}, nil
	}
	viols, err := transitiveDependencyViolations(".", "./root", NetworkImportForbidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(viols) != 1 || viols[0] != "net/http" {
		t.Fatalf("expected a single net/http violation, got %v", viols)
	}
}

func TestFailHelpersReportReason(t *testing.T) {
	var r recorder
	failIfTransitiveViolations(&r, "pure", nil)
	if r.msg != "" {
		t.Fatalf("no violations should not fail, got %q", r.msg)
	}
	failIfTransitiveViolations(&r, "pure", []string{"net/http"})
	if !strings.Contains(r.msg, "(pure)") || !strings.Contains(r.msg, "net/http") {
		t.Fatalf("unexpected message %q", r.msg)
	}
	r = recorder{}
	failIfDirectViolations(&r, "facade", []string{"m/internal/infra/blob/s3 (in x.go)"})
	if !strings.Contains(r.msg, "forbidden direct imports detected (facade)") {
		t.Fatalf("unexpected message %q", r.msg)
	}
}

func TestDirectImportViolationsFindsForbidden(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"net/http\"\nvar _ = http.MethodGet\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, NetworkImportForbidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(viols) != 1 || viols[0] != "net/http (in x.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

// TestAssertNoDirectImportsWithMultipleImports tests handling of files with multiple imports
func TestAssertNoDirectImportsWithMultipleImports(t *testing.T) {
	dir := t.TempDir()

	// Create a file with multiple allowed imports
	src := []byte(`package tmp
import "fmt"
import "os"
import "io"
func X() {
	fmt.Println("test")
}`)
	if err := os.WriteFile(filepath.Join(dir, "multi.go"), src, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	// Should pass when none of the imports are forbidden
	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == testForbiddenImport
	}, "should allow standard library imports")
}

// TestAssertNoDirectImportsWithQuotedImports tests handling of quoted imports
func TestAssertNoDirectImportsWithQuotedImports(t *testing.T) {
	dir := t.TempDir()

	// Create a file with various import styles
	src := []byte(`package tmp
import "fmt"
import (
	"os"
	alias "context"
	. "io"
)
func X() {}`)
	if err := os.WriteFile(filepath.Join(dir, "quotes.go"), src, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	// Should pass when we don't forbid any of these imports
	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == testForbiddenImport
	}, "should handle various import styles")
}
