package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const sampleRego = `# Deny unencrypted queues.
# Applies to every environment.
package stackform.policies.sqs_encryption

import rego.v1

deny contains msg if {
	input.resource.type == "aws_sqs_queue"
	not input.resource.attributes.kms_master_key_id
	msg := "SQS queues must be encrypted"
}
`

func newTestLoader() *Loader {
	return NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadRegoFile(t *testing.T) {
	loader := newTestLoader()
	dir := t.TempDir()
	path := writeFile(t, dir, "sqs-encryption.rego", sampleRego)

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("Expected 1 policy, got %d", len(policies))
	}

	p := policies[0]
	if p.Name != "sqs-encryption" {
		t.Errorf("Name = %q, want sqs-encryption", p.Name)
	}
	if p.Description != "Deny unencrypted queues. Applies to every environment." {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Severity != SeverityWarning {
		t.Errorf("Severity = %s, want warning", p.Severity)
	}
	if !p.Enabled {
		t.Error("Loaded policies should be enabled")
	}
	if p.Rego != sampleRego {
		t.Error("Rego source was not preserved verbatim")
	}
}

func TestLoadDirectory(t *testing.T) {
	loader := newTestLoader()
	dir := t.TempDir()
	writeFile(t, dir, "a.rego", sampleRego)
	writeFile(t, dir, "b.json", `{"name":"b","rego":"package stackform.policies.b\n","severity":"error"}`)
	writeFile(t, dir, "notes.txt", "ignored")

	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("Expected 2 policies, got %d", len(policies))
	}

	byName := make(map[string]Policy)
	for _, p := range policies {
		byName[p.Name] = p
	}
	if byName["b"].Severity != SeverityError {
		t.Errorf("JSON severity = %s, want error", byName["b"].Severity)
	}
}

func TestLoadJSONSeverityDefault(t *testing.T) {
	loader := newTestLoader()
	dir := t.TempDir()
	path := writeFile(t, dir, "c.json", `{"name":"c","rego":"package stackform.policies.c\n"}`)

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if policies[0].Severity != SeverityWarning {
		t.Errorf("Severity = %s, want warning default", policies[0].Severity)
	}
}

func TestLoadMissingPath(t *testing.T) {
	loader := newTestLoader()
	_, err := loader.LoadFromPaths(context.Background(), []string{"/nonexistent/policies"})
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
}

func TestLoaderCache(t *testing.T) {
	loader := newTestLoader()
	dir := t.TempDir()
	path := writeFile(t, dir, "cached.rego", sampleRego)

	first, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}

	// A changed file is served from cache until the cache is cleared.
	writeFile(t, dir, "cached.rego", "# Updated.\npackage stackform.policies.cached\n")
	second, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if second[0].Rego != first[0].Rego {
		t.Error("Expected cached content before ClearCache")
	}

	loader.ClearCache()
	third, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if third[0].Description != "Updated." {
		t.Errorf("Description = %q, want reloaded content", third[0].Description)
	}
}

func TestLoadBundle(t *testing.T) {
	loader := newTestLoader()
	dir := t.TempDir()
	path := writeFile(t, dir, "bundle.json", `{
		"name": "org-baseline",
		"version": "1.2.0",
		"policies": [
			{"name": "p1", "rego": "package stackform.policies.p1\n"},
			{"name": "p2", "rego": "package stackform.policies.p2\n", "severity": "critical"}
		]
	}`)

	bundle, err := loader.LoadBundle(path)
	if err != nil {
		t.Fatalf("LoadBundle failed: %v", err)
	}
	if bundle.Name != "org-baseline" || bundle.Version != "1.2.0" {
		t.Errorf("Bundle header = %s/%s", bundle.Name, bundle.Version)
	}
	if len(bundle.Policies) != 2 {
		t.Fatalf("Expected 2 bundle policies, got %d", len(bundle.Policies))
	}
}
