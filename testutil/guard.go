// Package testutil provides reusable testing helpers for enforcing architectural
// and API boundary invariants across the repository.
package testutil

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// AssertNoTransitiveDependency loads the packages matching pattern (relative to dir)
// and fails the test if any package in their dependency graph satisfies the
// forbidden predicate. Test files are not considered.
func AssertNoTransitiveDependency(t testing.TB, dir, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, err := transitiveDependencyViolations(dir, pattern, forbidden)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	failIfTransitiveViolations(t, reason, viols)
}

// AssertOnlyImportedBy fails the test if a package matching pattern imports a
// package under target without being one of the allowed importers. Packages
// under target may import each other.
func AssertOnlyImportedBy(t testing.TB, dir, pattern, target string, allowed ...string) {
	t.Helper()
	pkgs, err := load(dir, pattern, packages.NeedName|packages.NeedImports)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	viols := importerViolations(pkgs, target, allowed)
	if len(viols) > 0 {
		t.Fatalf("%s may only be imported by %s:\n%s", target, strings.Join(allowed, ", "), strings.Join(viols, "\n"))
	}
}

// AssertNoDirectImports scans all non-test .go files in dir (typically "." from within the package)
// and fails if any import path satisfies the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// NetworkImportForbidden matches packages that reach the network, a database or
// another process.
func NetworkImportForbidden(path string) bool {
	switch path {
	case "net", "net/http", "net/rpc", "os/exec", "database/sql":
		return true
	}
	return strings.HasPrefix(path, "net/http/")
}

// InfraImportForbidden returns a predicate matching any import path containing /internal/infra/.
func InfraImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/infra/")
}

var loadPackages = packages.Load

func load(dir, pattern string, mode packages.LoadMode) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: mode, Dir: dir}
	pkgs, err := loadPackages(cfg, pattern)
	if err != nil {
		return nil, err
	}
	var errs []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, e.Error())
		}
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return pkgs, nil
}

func transitiveDependencyViolations(dir, pattern string, forbidden func(path string) bool) ([]string, error) {
	pkgs, err := load(dir, pattern, packages.NeedName|packages.NeedImports|packages.NeedDeps)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var viols []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if seen[p.PkgPath] {
			return
		}
		seen[p.PkgPath] = true
		if forbidden(p.PkgPath) {
			viols = append(viols, p.PkgPath)
		}
	})
	sort.Strings(viols)
	return viols, nil
}

func importerViolations(pkgs []*packages.Package, target string, allowed []string) []string {
	under := func(path, root string) bool {
		return path == root || strings.HasPrefix(path, root+"/")
	}
	var viols []string
	for _, p := range pkgs {
		if under(p.PkgPath, target) {
			continue
		}
		ok := false
		for _, a := range allowed {
			if p.PkgPath == a {
				ok = true
				break
			}
		}
		if ok {
			continue
		}
		for imp := range p.Imports {
			if under(imp, target) {
				viols = append(viols, p.PkgPath+" imports "+imp)
			}
		}
	}
	sort.Strings(viols)
	return viols
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfTransitiveViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden transitive dependency detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
