package feed

import (
	"sort"
	"strings"
)

const (
	DefaultDomain     = "Security Operations"
	DefaultMaxDomains = 3

	// Labels scoring at least this share of the top score are kept.
	domainThreshold = 0.5
)

type Label struct {
	Name     string
	Keywords []string
}

// CISSPDomains lists the eight CISSP domains in declaration order, which is
// also the tie-break order. Keywords are lower-case substrings, so
// "authenticat" matches authenticate and authentication.
var CISSPDomains = []Label{
	{"Security and Risk Management", []string{
		"risk management", "risk assessment", "risk framework", "compliance",
		"governance", "policy", "regulation", "regulatory", "nist", "iso 27001",
		"gdpr", "hipaa", "fedramp", "sox", "legal", "liability", "audit",
		"business continuity", "disaster recovery", "bcp", "due diligence",
		"due care", "ethics", "cia triad",
	}},
	{"Asset Security", []string{
		"data classification", "data handling", "data lifecycle", "data retention",
		"data ownership", "data custodian", "pii", "personally identifiable",
		"sensitive data", "data destruction", "media sanitization", "scoping",
		"asset inventory", "data privacy",
	}},
	{"Security Architecture and Engineering", []string{
		"cryptograph", "encrypt", "decrypt", "cipher", "algorithm", "hash",
		"pki", "certificate authority", "digital signature", "key management",
		"tpm", "hsm", "secure boot", "hardware security", "quantum cryptograph",
		"architecture", "security model", "trusted computing", "side channel",
		"secure enclave", "key exchange", "diffie-hellman", "rsa", "aes",
		"elliptic curve", "block cipher", "stream cipher",
	}},
	{"Communication and Network Security", []string{
		"network", "firewall", "vpn", "tcp/ip", "tcp ", " udp", "dns",
		"http", "tls", "ssl", "wireless", "wi-fi", "wifi", "bluetooth",
		"routing", "bgp", "ospf", "vlan", "packet", "proxy", "cdn",
		"load balancer", "nat ", "ipv6", "ipv4", "protocol", "port scanning",
		"network segmentation", "dmz", "ipsec",
	}},
	{"Identity and Access Management", []string{
		"identity", "authenticat", "authoriz", "access control", " iam ",
		"single sign-on", "sso", "multi-factor", "mfa", "two-factor", "2fa",
		"oauth", "saml", "openid", "ldap", "active directory", "zero trust",
		"privileged access", "least privilege", "credential", "password",
		"biometric", "federation", "provisioning", "kerberos",
	}},
	{"Security Assessment and Testing", []string{
		"vulnerabilit", "penetration test", "pentest", "pen test", "exploit",
		"vulnerability scan", "bug bounty", "cve-", "patch", "zero-day",
		"zero day", "proof of concept", "poc ", "fuzzing", "code review",
		"static analysis", "dynamic analysis", "red team", "blue team",
		"purple team", "security audit", "risk assessment",
	}},
	{"Security Operations", []string{
		"incident response", "incident ", "forensic", "malware", "ransomware",
		"threat intelligence", "threat actor", "attack", "siem", " soc ",
		"monitor", "detection", "indicator of compromise", "ioc", "phishing",
		"botnet", "trojan", "backdoor", "apt ", "advanced persistent",
		"breach", "intrusion", "edr", "endpoint detection", "playbook",
		"chain of custody", "log analysis",
	}},
	{"Software Development Security", []string{
		"software development", "secure coding", "sdlc", "devsecops", "devops",
		"web application", "api security", "sql injection", "xss",
		"cross-site", "buffer overflow", "owasp", "static analysis",
		"dependency", "supply chain", "code injection", "deserialization",
		"secure design", "threat model",
	}},
}

type Classifier struct {
	labels       []Label
	defaultLabel string
	maxLabels    int
}

func NewClassifier() *Classifier {
	return &Classifier{
		labels:       CISSPDomains,
		defaultLabel: DefaultDomain,
		maxLabels:    DefaultMaxDomains,
	}
}

// Run scores title and description against every label and returns the
// labels within the threshold of the best score, best first.
func (c *Classifier) Run(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	type scored struct {
		name  string
		score int
	}

	scores := make([]scored, len(c.labels))
	top := 0
	for i, label := range c.labels {
		n := 0
		for _, kw := range label.Keywords {
			if strings.Contains(text, kw) {
				n++
			}
		}
		scores[i] = scored{label.Name, n}
		top = max(top, n)
	}

	if top == 0 {
		return []string{c.defaultLabel}
	}

	threshold := float64(top) * domainThreshold
	var qualifying []scored
	for _, s := range scores {
		if float64(s.score) >= threshold {
			qualifying = append(qualifying, s)
		}
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].score > qualifying[j].score
	})

	if len(qualifying) > c.maxLabels {
		qualifying = qualifying[:c.maxLabels]
	}

	out := make([]string, len(qualifying))
	for i, s := range qualifying {
		out[i] = s.name
	}
	return out
}

// Primary returns the single best label.
func (c *Classifier) Primary(title, description string) string {
	return c.Run(title, description)[0]
}
