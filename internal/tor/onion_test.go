package tor

import (
	"bytes"
	"encoding/base32"
	"errors"
	"strings"
	"testing"
)

// v3Address builds the onion address of an ed25519 public key.
func v3Address(pubkey []byte) string {
	sum := v3Checksum(pubkey)
	data := make([]byte, 0, 35)
	data = append(data, pubkey...)
	data = append(data, sum[0], sum[1], onionV3Version)
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix
}

func TestIsValidV3Address(t *testing.T) {
	t.Parallel()

	address := v3Address(bytes.Repeat([]byte{0x42}, 32))
	if len(address) != 62 {
		t.Fatalf("unexpected address %q", address)
	}

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"computed address", address, true},
		{"uppercase", strings.ToUpper(address), true},
		{"wrong version", address[:55] + "a" + OnionSuffix, false},
		{"bad checksum", "b" + address[1:], false},
		{"v2 address", "expyuzz4wqqyqhjn.onion", false},
		{"not onion", "example.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsValidV3Address(tt.address); got != tt.want {
				t.Errorf("IsValidV3Address(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestRequiresTor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{"http://expyuzz4wqqyqhjn.onion/", true},
		{"https://EXAMPLE.ONION:8443/path", true},
		{"https://example.com/", false},
		{"https://onion.example.com/", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			if got := RequiresTor(tt.url); got != tt.want {
				t.Errorf("RequiresTor(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestCheckTarget(t *testing.T) {
	t.Parallel()

	address := v3Address(bytes.Repeat([]byte{0x07}, 32))
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"clearnet", "https://www.example.com/", false},
		{"v3 service", "http://" + address + "/", false},
		{"v3 subdomain", "http://www." + address + "/contact", false},
		{"v2 service", "http://expyuzz4wqqyqhjn.onion/", true},
		{"made up", "http://shop.onion/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckTarget(tt.url)
			if tt.wantErr && !errors.Is(err, ErrInvalidOnionAddress) {
				t.Errorf("CheckTarget(%q) = %v, want ErrInvalidOnionAddress", tt.url, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckTarget(%q) unexpected error: %v", tt.url, err)
			}
		})
	}
}
