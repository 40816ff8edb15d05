package backend

import (
	"context"
	"path/filepath"
	"testing"

	"pennywise/internal/config"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown type", Config{Type: "postgres"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"amqp without exchange", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost"}, true},
		{"bad timezone", Config{Type: MemoryBackend, Timezone: "Nowhere/City"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config should fail")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "memory", SeedDir: "seed", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != MemoryBackend || cfg.SeedDirectory != "seed" || cfg.Timezone != "UTC" {
		t.Errorf("unexpected backend config: %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	for _, cfg := range []Config{
		{Type: MemoryBackend, SeedDirectory: t.TempDir(), Timezone: "UTC"},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "pw.db"), Timezone: "UTC"},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Cleanup()

			if res.Publishing {
				t.Error("no broker configured, publishing should be off")
			}
			if err := res.App.Store.Ping(ctx); err != nil {
				t.Errorf("Ping: %v", err)
			}
			if _, err := res.App.Budget.ListCategories(ctx); err != nil {
				t.Errorf("ListCategories: %v", err)
			}
		})
	}
}
