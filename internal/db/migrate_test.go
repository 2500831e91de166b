package db

import "testing"

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/billing?sslmode=disable", "pgx5://u:p@localhost:5432/billing?sslmode=disable"},
		{"postgresql://localhost/billing", "pgx5://localhost/billing"},
		{"pgx5://localhost/billing", "pgx5://localhost/billing"},
	}
	for _, tt := range tests {
		if got := MigrateURL(tt.in); got != tt.want {
			t.Errorf("MigrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
