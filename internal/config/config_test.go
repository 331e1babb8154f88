package config

import (
	"testing"

	"github.com/google/uuid"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clinictrack")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.PickupCadenceMonths != 1 {
		t.Errorf("expected default pickup cadence 1, got %d", cfg.PickupCadenceMonths)
	}
	if cfg.ViralLoadCadenceMonths != 6 {
		t.Errorf("expected default viral-load cadence 6, got %d", cfg.ViralLoadCadenceMonths)
	}
	if cfg.SweepHour != 6 {
		t.Errorf("expected default sweep hour 6, got %d", cfg.SweepHour)
	}
	if !cfg.IsDev() {
		t.Error("expected default env to be development")
	}
}

func TestValidate_JWTSecretRequiredOutsideDev(t *testing.T) {
	cfg := &Config{Env: "production", SweepHour: 6, PickupCadenceMonths: 1, ViralLoadCadenceMonths: 6}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET in production")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_SweepHourRange(t *testing.T) {
	cfg := &Config{Env: "development", SweepHour: 24, PickupCadenceMonths: 1, ViralLoadCadenceMonths: 6}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range sweep hour")
	}
}

func TestValidate_CadenceFloor(t *testing.T) {
	cfg := &Config{Env: "development", SweepHour: 6, PickupCadenceMonths: 0, ViralLoadCadenceMonths: 6}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero pickup cadence")
	}
}

func TestValidate_SystemActorID(t *testing.T) {
	cfg := &Config{Env: "development", SweepHour: 6, PickupCadenceMonths: 1, ViralLoadCadenceMonths: 6, SystemActorID: "not-a-uuid"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed SYSTEM_ACTOR_ID")
	}
}

func TestSystemActor(t *testing.T) {
	id := uuid.New()
	cfg := &Config{SystemActorID: id.String()}
	if got := cfg.SystemActor(); got != id {
		t.Errorf("expected %v, got %v", id, got)
	}
	cfg = &Config{}
	if got := cfg.SystemActor(); got != uuid.Nil {
		t.Errorf("expected nil UUID for unset actor, got %v", got)
	}
}
