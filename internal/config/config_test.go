package config

import "testing"

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
}

func TestEnvFloatValid(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.25")
	v, err := envFloat("TEST_FLOAT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.25 {
		t.Fatalf("expected 0.25, got %v", v)
	}
}

func TestEnvFloatInvalid(t *testing.T) {
	t.Setenv("TEST_FLOAT_BAD", "not-a-number")
	_, err := envFloat("TEST_FLOAT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-numeric value, got nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreBackend != BackendFilesystem {
		t.Fatalf("expected fs backend by default, got %s", cfg.StoreBackend)
	}
	if cfg.MaxDepth != 10 {
		t.Fatalf("expected default max depth 10, got %d", cfg.MaxDepth)
	}
	if cfg.DefaultBranch != "main" {
		t.Fatalf("expected default branch main, got %s", cfg.DefaultBranch)
	}
}

func TestLoad_PostgresBackendRequiresURL(t *testing.T) {
	t.Setenv("VERITAS_STORE_BACKEND", "postgres")
	t.Setenv("VERITAS_POSTGRES_URL", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when postgres backend has no URL configured")
	}
}

func TestLoad_UnknownBackendRejected(t *testing.T) {
	t.Setenv("VERITAS_STORE_BACKEND", "dynamodb")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for unsupported store backend")
	}
}

func TestLoad_CacheBackendDefaultsToMemory(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheBackend != CacheBackendMemory {
		t.Fatalf("expected memory cache backend by default, got %s", cfg.CacheBackend)
	}
}

func TestLoad_UnknownCacheBackendRejected(t *testing.T) {
	t.Setenv("VERITAS_CACHE_BACKEND", "redis")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for unsupported cache backend")
	}
}

func TestLoad_SQLiteCacheBackendRequiresPath(t *testing.T) {
	t.Setenv("VERITAS_CACHE_BACKEND", "sqlite")
	t.Setenv("VERITAS_CACHE_PATH", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when sqlite cache backend has no path configured")
	}
}
