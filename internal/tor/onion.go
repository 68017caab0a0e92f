package tor

import (
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// OnionSuffix is the top-level domain of onion services.
	OnionSuffix = ".onion"

	// onionV3Version is the version byte of v3 onion addresses.
	onionV3Version = 0x03
)

// ErrInvalidOnionAddress is returned for .onion hosts that are not valid v3
// addresses. v2 services were retired in 2021 and are unreachable.
var ErrInvalidOnionAddress = errors.New("not a valid v3 onion address")

// onionV3Pattern matches v3 onion addresses (56 base32 characters + .onion).
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

var checksumPrefix = []byte(".onion checksum")

// IsValidV3Address reports whether address is a v3 onion address with a
// correct checksum.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// pubkey (32) | checksum (2) | version (1)
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}
	sum := v3Checksum(pubkey)
	return checksum[0] == sum[0] && checksum[1] == sum[1]
}

// v3Checksum returns SHA3-256(".onion checksum" || pubkey || version)[:2].
func v3Checksum(pubkey []byte) [2]byte {
	h := sha3.New256()
	h.Write(checksumPrefix)
	h.Write(pubkey)
	h.Write([]byte{onionV3Version})
	var sum [2]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// RequiresTor reports whether rawURL points at an onion service and can
// only be audited through Tor.
func RequiresTor(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), OnionSuffix)
}

// CheckTarget rejects onion URLs whose service address is malformed.
// Subdomains of a service ("www.<address>.onion") are accepted. Other URLs
// pass unchanged.
func CheckTarget(rawURL string) error {
	if !RequiresTor(rawURL) {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	labels := strings.Split(strings.ToLower(u.Hostname()), ".")
	service := strings.Join(labels[max(0, len(labels)-2):], ".")
	if !IsValidV3Address(service) {
		return fmt.Errorf("%w: %s", ErrInvalidOnionAddress, u.Hostname())
	}
	return nil
}
