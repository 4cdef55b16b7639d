package config

import "testing"

func TestBuildDefaultsAreValid(t *testing.T) {
	if _, err := NewBuilder().Build(); err != nil {
		t.Fatalf("unexpected error building defaults: %v", err)
	}
}

func TestBuildRejectsAckDelayExponentBeyondMax(t *testing.T) {
	_, err := NewBuilder().AckDelayExponent(MaxAckDelayExponent + 1).Build()
	if err == nil {
		t.Fatalf("expected an error for ack_delay_exponent beyond the max")
	}
}

func TestBuildRejectsNonPositiveDurations(t *testing.T) {
	if _, err := NewBuilder().LossThreshold(0).Build(); err == nil {
		t.Fatalf("expected an error for a zero loss_threshold")
	}
	if _, err := NewBuilder().LossDetectionPeriod(-1).Build(); err == nil {
		t.Fatalf("expected an error for a negative loss_detection_period")
	}
	if _, err := NewBuilder().IdleTimeout(0).Build(); err == nil {
		t.Fatalf("expected an error for a zero idle_timeout")
	}
}

func TestBuildRejectsNonPositiveMaxPacketSize(t *testing.T) {
	if _, err := NewBuilder().MaxPacketSize(0).Build(); err == nil {
		t.Fatalf("expected an error for a zero max_packet_size")
	}
}

func TestMustBuildPanicsOnInvalidConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustBuild to panic on an invalid config")
		}
	}()
	NewBuilder().MaxPacketSize(-1).MustBuild()
}
