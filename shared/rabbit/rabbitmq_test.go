package rabbit

import "testing"

func TestInitErrorsWhenCredentialsMissing(t *testing.T) {
	t.Setenv("RABBITMQ_USER", "")
	t.Setenv("RABBITMQ_PASSWORD", "")
	t.Setenv("RABBITMQ_PORT", "")

	if _, err := Init(); err == nil {
		t.Fatal("expected an error when connection settings are missing")
	}
}
