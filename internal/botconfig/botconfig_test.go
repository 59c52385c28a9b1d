package botconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("default templates invalid: %v", err)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := "welcome: \"Oi! Escolha 1 ou 2.\"\nreasons:\n  - \"Suporte\"\n  - \"Vendas\"\n  - \"Financeiro\"\n  - \"Reclamação\"\n  - \"Outros\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write template file: %v", err)
	}

	tmpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tmpl.Welcome != "Oi! Escolha 1 ou 2." {
		t.Errorf("welcome not overridden: %q", tmpl.Welcome)
	}
	if tmpl.Reasons[1] != "Vendas" {
		t.Errorf("reasons not overridden: %v", tmpl.Reasons)
	}
	// Fields absent from the file keep their defaults.
	if tmpl.InvalidName != Defaults().InvalidName {
		t.Errorf("unset field lost its default: %q", tmpl.InvalidName)
	}
}

func TestLoadRejectsWrongReasonCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := "reasons:\n  - \"Suporte\"\n  - \"Vendas\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write template file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for wrong reason count")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestProviderSwap(t *testing.T) {
	p := NewProvider(Defaults())
	if p.Get().Welcome == "" {
		t.Fatal("expected defaults to be served")
	}

	custom := Defaults()
	custom.Welcome = "novo texto"
	p.Set(custom)
	if p.Get().Welcome != "novo texto" {
		t.Errorf("swap not applied: %q", p.Get().Welcome)
	}
}
