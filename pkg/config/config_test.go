package config

import "testing"

func TestDBConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DBConfig
		wantErr bool
	}{
		{name: "postgres with dsn", cfg: DBConfig{Driver: DBDriverPostgres, DSN: "postgres://u:p@localhost/db"}},
		{name: "postgres without dsn", cfg: DBConfig{Driver: DBDriverPostgres}, wantErr: true},
		{name: "sqlite with path", cfg: DBConfig{Driver: DBDriverSQLite, Path: "stock.db"}},
		{name: "sqlite without path", cfg: DBConfig{Driver: DBDriverSQLite}, wantErr: true},
		{name: "unknown driver", cfg: DBConfig{Driver: "oracle"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAppEnvHelpers(t *testing.T) {
	app := AppConfig{Env: "DEV"}
	if !app.IsDev() || app.IsProd() {
		t.Fatalf("expected dev environment")
	}
	app.Env = "prod"
	if !app.IsProd() || app.IsDev() {
		t.Fatalf("expected prod environment")
	}
}

func TestRedisEnabled(t *testing.T) {
	if (RedisConfig{}).Enabled() {
		t.Fatalf("empty redis config should be disabled")
	}
	if !(RedisConfig{Address: "localhost:6379"}).Enabled() {
		t.Fatalf("address should enable redis")
	}
}
