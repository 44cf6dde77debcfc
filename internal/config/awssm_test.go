package config

import (
	"context"
	"testing"
)

func TestResolveValue_AWSSM_Integration(t *testing.T) {
	// Without valid AWS credentials, this should fail gracefully
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_REGION", "")
	_, err := ResolveValue(context.Background(), "${AWS_SM:nonexistent-secret}")
	if err == nil {
		t.Error("expected error when AWS credentials are not configured")
	}
}

func TestSecretField(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		key     string
		want    string
		wantErr bool
	}{
		{"string value", `{"password":"p@ss","user":"sa"}`, "password", "p@ss", false},
		{"missing key", `{"user":"sa"}`, "password", "", true},
		{"not json", `plain`, "password", "", true},
		{"non-string value", `{"port":1433}`, "port", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secretField(tt.secret, "db", tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
