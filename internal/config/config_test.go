package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIncludesSearchDefaults(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_K", "")
	t.Setenv("SEARCH_K_PER_CHANNEL", "")
	t.Setenv("SEARCH_FUSION_STRATEGY", "")
	t.Setenv("SEARCH_DENSE_WEIGHT", "")

	cfg := Load()
	if cfg.SearchDefaultK != 10 {
		t.Fatalf("expected default k 10, got %d", cfg.SearchDefaultK)
	}
	if cfg.SearchKPerChannel != 50 {
		t.Fatalf("expected default k per channel 50, got %d", cfg.SearchKPerChannel)
	}
	if cfg.SearchFusionStrategy != "weighted" {
		t.Fatalf("expected default fusion strategy weighted, got %q", cfg.SearchFusionStrategy)
	}
	if cfg.SearchDenseWeight != 0.5 {
		t.Fatalf("expected default dense weight 0.5, got %f", cfg.SearchDenseWeight)
	}
}

func TestLoadParsesSearchOverrides(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_K", "20")
	t.Setenv("SEARCH_FUSION_STRATEGY", "rrf")
	t.Setenv("SEARCH_FUSION_RRF_K", "75")
	t.Setenv("SEARCH_DENSE_WEIGHT", "0.7")
	t.Setenv("REWRITE_ENABLED", "false")

	cfg := Load()
	if cfg.SearchDefaultK != 20 {
		t.Fatalf("expected k override 20, got %d", cfg.SearchDefaultK)
	}
	if cfg.SearchFusionStrategy != "rrf" {
		t.Fatalf("expected fusion strategy override, got %q", cfg.SearchFusionStrategy)
	}
	if cfg.SearchFusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.SearchFusionRRFK)
	}
	if cfg.SearchDenseWeight != 0.7 {
		t.Fatalf("expected dense weight 0.7, got %f", cfg.SearchDenseWeight)
	}
	if cfg.RewriteEnabled {
		t.Fatalf("expected rewrite disabled")
	}
}

func TestLoadAppliesYAMLFileBelowEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchcore.yaml")
	content := []byte("search_default_k: 15\nsearch_fusion_strategy: rrf\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("SEARCHCORE_CONFIG_FILE", path)
	t.Setenv("SEARCH_FUSION_STRATEGY", "weighted")
	t.Setenv("SEARCH_DEFAULT_K", "")

	cfg := Load()
	if cfg.SearchDefaultK != 15 {
		t.Fatalf("expected file value 15, got %d", cfg.SearchDefaultK)
	}
	if cfg.SearchFusionStrategy != "weighted" {
		t.Fatalf("expected env to override file, got %q", cfg.SearchFusionStrategy)
	}
}
