package vpn

import (
	"strings"
	"testing"
)

const validWireGuardConfig = `[Interface]
PrivateKey = aBcDeFgH1234567890=
Address = 10.0.0.2/32
DNS = 1.1.1.1

[Peer]
PublicKey = zYxWvUtS0987654321=
Endpoint = 1.2.3.4:51820
AllowedIPs = 0.0.0.0/0
`

const validOpenVPNConfig = `client
dev tun
proto udp
remote vpn.example.com 443
dhcp-option DNS 8.8.8.8
<ca>
-----BEGIN CERTIFICATE-----
MIIB...
-----END CERTIFICATE-----
</ca>
`

func TestParse_WireGuardClassification(t *testing.T) {
	// Any content with both section markers classifies as WireGuard,
	// regardless of field completeness.
	contents := []string{
		validWireGuardConfig,
		"[Interface]\n[Peer]\n",
		"junk\n[Interface]\nmore junk\n[Peer]\n",
	}
	for _, content := range contents {
		if got := Parse(content); got.Kind != KindWireGuard {
			t.Errorf("Parse(%q).Kind = %v, want WireGuard", content, got.Kind)
		}
	}
}

func TestParse_OpenVPNClassification(t *testing.T) {
	contents := []string{
		validOpenVPNConfig,
		"client\nremote vpn.example.com\n",
		"client\n<ca>\n</ca>\n",
	}
	for _, content := range contents {
		if got := Parse(content); got.Kind != KindOpenVPN {
			t.Errorf("Parse(%q).Kind = %v, want OpenVPN", content, got.Kind)
		}
	}
}

func TestParse_WireGuardFields(t *testing.T) {
	cfg := Parse(validWireGuardConfig)

	if !cfg.Valid {
		t.Fatalf("Valid = false, want true (error: %s)", cfg.Error)
	}
	if cfg.Endpoint != "1.2.3.4:51820" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "1.2.3.4:51820")
	}
	if cfg.DNS != "1.1.1.1" {
		t.Errorf("DNS = %q, want %q", cfg.DNS, "1.1.1.1")
	}
	if cfg.Address != "10.0.0.2/32" {
		t.Errorf("Address = %q, want %q", cfg.Address, "10.0.0.2/32")
	}
}

func TestParse_WireGuardMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "missing private key",
			content: "[Interface]\n[Peer]\nPublicKey = x\nEndpoint = 1.2.3.4:51820\n",
			want:    []string{"PrivateKey"},
		},
		{
			name:    "missing public key",
			content: "[Interface]\nPrivateKey = x\n[Peer]\nEndpoint = 1.2.3.4:51820\n",
			want:    []string{"PublicKey"},
		},
		{
			name:    "missing endpoint",
			content: "[Interface]\nPrivateKey = x\n[Peer]\nPublicKey = y\n",
			want:    []string{"Endpoint"},
		},
		{
			name:    "missing everything",
			content: "[Interface]\n[Peer]\n",
			want:    []string{"PrivateKey", "PublicKey", "Endpoint"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Parse(tt.content)
			if cfg.Valid {
				t.Fatal("Valid = true, want false")
			}
			for _, field := range tt.want {
				if !strings.Contains(cfg.Error, field) {
					t.Errorf("Error = %q, want mention of %q", cfg.Error, field)
				}
			}
		})
	}
}

func TestParse_OpenVPNFields(t *testing.T) {
	cfg := Parse(validOpenVPNConfig)

	if !cfg.Valid {
		t.Fatalf("Valid = false, want true (error: %s)", cfg.Error)
	}
	if cfg.Endpoint != "vpn.example.com:443" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "vpn.example.com:443")
	}
	if cfg.DNS != "8.8.8.8" {
		t.Errorf("DNS = %q, want %q", cfg.DNS, "8.8.8.8")
	}
}

func TestParse_OpenVPNDefaultPort(t *testing.T) {
	cfg := Parse("client\nremote vpn.example.com\nca ca.crt\n")

	if cfg.Endpoint != "vpn.example.com:1194" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "vpn.example.com:1194")
	}
	if !cfg.Valid {
		t.Errorf("Valid = false, want true (error: %s)", cfg.Error)
	}
}

func TestParse_OpenVPNMissingCA(t *testing.T) {
	cfg := Parse("client\nremote vpn.example.com 443\n")

	if cfg.Valid {
		t.Fatal("Valid = true, want false")
	}
	if cfg.Endpoint != "vpn.example.com:443" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "vpn.example.com:443")
	}
	if !strings.Contains(cfg.Error, "CA certificate") {
		t.Errorf("Error = %q, want mention of CA certificate", cfg.Error)
	}
}

func TestParse_OpenVPNMissingRemote(t *testing.T) {
	cfg := Parse("client\n<ca>\n</ca>\n")

	if cfg.Valid {
		t.Fatal("Valid = true, want false")
	}
	if !strings.Contains(cfg.Error, "remote server") {
		t.Errorf("Error = %q, want mention of remote server", cfg.Error)
	}
}

func TestParse_Unrecognized(t *testing.T) {
	cfg := Parse("just some text\nnothing vpn about it\n")

	if cfg.Valid {
		t.Fatal("Valid = true, want false")
	}
	if cfg.Kind != KindWireGuard {
		t.Errorf("Kind = %v, want default WireGuard", cfg.Kind)
	}
	if !strings.Contains(cfg.Error, "WireGuard") || !strings.Contains(cfg.Error, "OpenVPN") {
		t.Errorf("Error = %q, want both expected formats named", cfg.Error)
	}
}

func TestParse_ToleratesMalformedLines(t *testing.T) {
	// Unknown directives and lines without '=' are ignored, never fatal.
	content := "[Interface]\nPrivateKey\nEndpoint\nUnknownDirective zzz\n[Peer]\nPublicKey = y\n"
	cfg := Parse(content)

	if cfg.Kind != KindWireGuard {
		t.Fatalf("Kind = %v, want WireGuard", cfg.Kind)
	}
	if cfg.Valid {
		t.Error("Valid = true, want false")
	}
	if cfg.Endpoint != "" {
		t.Errorf("Endpoint = %q, want empty for a line without '='", cfg.Endpoint)
	}
	// The key flag is presence-based: a bare PrivateKey line still counts.
	if strings.Contains(cfg.Error, "PrivateKey") {
		t.Errorf("Error = %q, should not report PrivateKey as missing", cfg.Error)
	}
}

func TestParse_WhitespaceTrimmed(t *testing.T) {
	content := "  [Interface]\n\tPrivateKey = x\n  Endpoint =   5.6.7.8:51820  \n[Peer]\n   PublicKey = y\n"
	cfg := Parse(content)

	if cfg.Endpoint != "5.6.7.8:51820" {
		t.Errorf("Endpoint = %q, want trimmed %q", cfg.Endpoint, "5.6.7.8:51820")
	}
	if !cfg.Valid {
		t.Errorf("Valid = false, want true (error: %s)", cfg.Error)
	}
}

func TestParse_OpenVPNDNSDirective(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantDNS string
	}{
		{"dns option", "dhcp-option DNS 8.8.8.8", "8.8.8.8"},
		{"other option naming dns", "dhcp-option DOMAIN myDNS.local", ""},
		{"dns option without value", "dhcp-option DNS", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Parse("client\nremote vpn.example.com 443\n" + tt.line + "\nca ca.crt\n")
			if cfg.DNS != tt.wantDNS {
				t.Errorf("DNS = %q, want %q", cfg.DNS, tt.wantDNS)
			}
		})
	}
}

func TestParse_OpenVPNFirstRemoteWins(t *testing.T) {
	content := "client\nremote first.example.com 1194\nremote second.example.com 443\nca ca.crt\n"
	cfg := Parse(content)

	if cfg.Endpoint != "first.example.com:1194" {
		t.Errorf("Endpoint = %q, want first remote", cfg.Endpoint)
	}
}
