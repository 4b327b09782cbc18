package billing

import "testing"

func TestStatusPremium(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusActive, true},
		{StatusTrialing, true},
		{StatusPastDue, true},
		{StatusCanceled, false},
		{StatusNone, false},
		{Status("garbage"), false},
	}

	for _, tt := range tests {
		if got := tt.status.Premium(); got != tt.want {
			t.Errorf("Premium(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSubscriptionStatusEmptyCustomer(t *testing.T) {
	c := NewClient(Config{})
	status, err := c.SubscriptionStatus("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusNone {
		t.Errorf("status = %q, want %q", status, StatusNone)
	}
}

func TestConfigured(t *testing.T) {
	if NewClient(Config{}).Configured() {
		t.Error("expected unconfigured client without secret key")
	}
	if !NewClient(Config{SecretKey: "sk_test_123"}).Configured() {
		t.Error("expected configured client with secret key")
	}
}
