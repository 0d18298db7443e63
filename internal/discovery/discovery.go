// Package discovery finds the addresses the web server listens on.
package discovery

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultPortsConfig is where Debian based systems keep the Listen directives.
const DefaultPortsConfig = "/etc/apache2/ports.conf"

// ErrAddressDiscovery is matched by every *Error.
var ErrAddressDiscovery = errors.New("failed to discover any addresses or ports the server is listening on")

// Error reports a ports configuration that yielded no address.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrAddressDiscovery, e.Reason, e.Path)
}

// Is reports whether target is ErrAddressDiscovery.
func (e *Error) Is(target error) bool {
	return target == ErrAddressDiscovery
}

var (
	// barePort matches listen values without an address.
	barePort = regexp.MustCompile(`^\d+$`)
	// hostPort matches "ADDRESS:PORT" listen values.
	hostPort = regexp.MustCompile(`^(.+):(\d+)$`)
)

// Address is a network address the server listens on.
type Address struct {
	Protocol string
	Host     string
	Port     int
}

// NewAddress creates an address on the loopback interface. Port 443 implies https.
func NewAddress(port int) Address {
	protocol := "http"
	if port == 443 {
		protocol = "https"
	}

	return Address{Protocol: protocol, Host: "127.0.0.1", Port: port}
}

// URL returns the base URL of the address, leaving out the default port of the protocol.
func (a Address) URL() string {
	if (a.Protocol == "http" && a.Port == 80) || (a.Protocol == "https" && a.Port == 443) {
		return fmt.Sprintf("%s://%s", a.Protocol, a.Host)
	}

	return fmt.Sprintf("%s://%s:%d", a.Protocol, a.Host, a.Port)
}

func (a Address) String() string {
	return a.URL()
}

// ParsePortsConfig reads the Listen directives of a ports configuration file.
// Directives that cannot be parsed are logged and skipped.
func ParsePortsConfig(path string, logger *zap.Logger) ([]Address, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Reason: "the configuration file is missing"}
	}
	defer file.Close()

	var addresses []Address

	scanner := bufio.NewScanner(file)
	for lnum := 1; scanner.Scan(); lnum++ {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) < 2 || tokens[0] != "Listen" {
			continue
		}

		address, ok := parseListen(tokens[1])
		if !ok {
			logger.Warn("Failed to parse listen directive",
				zap.Int("line", lnum),
				zap.String("directive", scanner.Text()))
			continue
		}

		if len(tokens) >= 3 {
			address.Protocol = tokens[2]
		}

		logger.Debug("Parsed listen directive", zap.Int("line", lnum), zap.Stringer("address", address))
		addresses = append(addresses, address)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(addresses) == 0 {
		return nil, &Error{Path: path, Reason: "no Listen directive found"}
	}

	return addresses, nil
}

// StatusURLs returns the HTML and machine readable status page URLs of the first address.
func StatusURLs(addresses []Address) (htmlURL, textURL string) {
	htmlURL = addresses[0].URL() + "/server-status"
	return htmlURL, TextURL(htmlURL)
}

// TextURL returns the machine readable variant of an HTML status page URL.
func TextURL(htmlURL string) string {
	return htmlURL + "?auto"
}

// parseListen parses the value of a Listen directive: either a bare port or ADDRESS:PORT.
func parseListen(value string) (Address, bool) {
	if barePort.MatchString(value) {
		port, err := strconv.Atoi(value)
		return NewAddress(port), err == nil
	}

	match := hostPort.FindStringSubmatch(value)
	if match == nil {
		return Address{}, false
	}

	port, err := strconv.Atoi(match[2])
	if err != nil {
		return Address{}, false
	}

	address := NewAddress(port)
	if match[1] != "0.0.0.0" {
		address.Host = match[1]
	}

	return address, true
}
