package sigrule

import "wafgate/waf"

// Rule is one named detection signature: a threat category, a severity, and a
// set of regex patterns. Rules are immutable after construction; the patterns
// are compiled into the engine's multi-regex database, case-insensitively.
type Rule struct {
	Name        string
	ThreatType  string
	Severity    waf.ThreatLevel
	Patterns    []string
	Description string
}

// RulesForTemplate returns the signature set for the given template type.
// The basic set covers the common injection classes; the advanced template
// appends the extended set. Order matters: it is the tie-break order when two
// matches have equal severity.
func RulesForTemplate(t waf.TemplateType) []Rule {
	rules := basicRules()
	if t == waf.TemplateAdvanced {
		rules = append(rules, advancedRules()...)
	}
	return rules
}

func basicRules() []Rule {
	return []Rule{
		{
			Name:       "sqli-common",
			ThreatType: "SQL Injection",
			Severity:   waf.ThreatHigh,
			Patterns: []string{
				`(%27|')\s*(union(\s+all)?\s+select|or\s+\d+\s*=\s*\d+)`,
				`union(\s|\+|/\*.*?\*/)+select`,
				`\b(select|insert|update|delete)\s+.{0,64}?\b(from|into|set)\b`,
				`\bor\s+1\s*=\s*1\b`,
				`;\s*(drop|truncate|shutdown)\b`,
				`\b(sleep|benchmark)\s*\(\s*\d`,
			},
			Description: "Classic SQL injection probes: quoted unions, boolean tautologies, stacked statements and timing primitives.",
		},
		{
			Name:       "xss-common",
			ThreatType: "Cross-Site Scripting",
			Severity:   waf.ThreatMedium,
			Patterns: []string{
				`<\s*script[^>]*>`,
				`javascript\s*:`,
				`\bon(error|load|click|mouseover|focus|submit)\s*=`,
				`<\s*(iframe|object|embed)\b`,
				`\b(alert|prompt|confirm)\s*\(`,
				`document\s*\.\s*(cookie|location|write)`,
			},
			Description: "Reflected and stored XSS vectors: script tags, event handlers, javascript URIs.",
		},
		{
			Name:       "path-traversal",
			ThreatType: "Path Traversal",
			Severity:   waf.ThreatMedium,
			Patterns: []string{
				`(\.\.|%2e%2e)(/|\\|%2f|%5c)`,
				`/etc/(passwd|shadow|hosts)\b`,
				`[a-z]:(\\|%5c)+(windows|winnt|boot\.ini)`,
				`/proc/self/`,
			},
			Description: "Directory escape sequences and canonical sensitive file paths, raw and URL-encoded.",
		},
		{
			Name:       "cmd-injection",
			ThreatType: "Command Injection",
			Severity:   waf.ThreatCritical,
			Patterns: []string{
				"[;&|`]\\s*(cat|ls|id|whoami|uname|wget|curl|nc|bash|sh)\\b",
				`\$\(\s*[a-z/.]`,
				`\b(cmd|powershell)(\.exe)?\s+(/c|-c|-enc)\b`,
				`\bdev/(tcp|udp)/\d`,
			},
			Description: "Shell metacharacter chains and command substitution aimed at OS command execution.",
		},
		{
			Name:       "file-inclusion",
			ThreatType: "File Inclusion",
			Severity:   waf.ThreatMedium,
			Patterns: []string{
				`php://(input|filter|data)`,
				`(data|expect|zip|phar)://`,
				`\b(include|require)(_once)?\s*\(`,
				`=\s*(https?|ftp)://[^\s&]+\.(php|txt)\b`,
			},
			Description: "Local and remote file inclusion via PHP wrappers and remote script URLs.",
		},
	}
}

func advancedRules() []Rule {
	return []Rule{
		{
			Name:       "sqli-advanced",
			ThreatType: "Advanced SQL Injection",
			Severity:   waf.ThreatCritical,
			Patterns: []string{
				`\b(information_schema|sysobjects|pg_catalog)\b`,
				`\b(load_file|into\s+(out|dump)file)\b`,
				`\bwaitfor\s+delay\s`,
				`\b(and|or)\s+\d+\s*[=<>]\s*\d+\s*(--|#|/\*)`,
				`\b(extractvalue|updatexml)\s*\(`,
				`\bcase\s+when\b.{0,64}?\bthen\b`,
			},
			Description: "Blind and out-of-band SQL injection: schema probing, file primitives, conditional timing.",
		},
		{
			Name:       "xss-advanced",
			ThreatType: "Advanced Cross-Site Scripting",
			Severity:   waf.ThreatHigh,
			Patterns: []string{
				`<\s*svg[^>]*\bon[a-z]+\s*=`,
				`\bexpression\s*\(`,
				`vbscript\s*:`,
				`\bsrcdoc\s*=`,
				`data:text/html`,
				`document\s*\.\s*domain`,
			},
			Description: "Filter-evading XSS: SVG handlers, CSS expressions, srcdoc and data-URI payload carriers.",
		},
		{
			Name:       "xxe",
			ThreatType: "XML External Entity",
			Severity:   waf.ThreatHigh,
			Patterns: []string{
				`<!DOCTYPE[^>]{0,256}\[`,
				`<!ENTITY[^>]{0,256}(SYSTEM|PUBLIC)`,
				`(SYSTEM|PUBLIC)\s+("|')file://`,
			},
			Description: "XML external entity declarations referencing system resources.",
		},
		{
			Name:       "ldap-injection",
			ThreatType: "LDAP Injection",
			Severity:   waf.ThreatMedium,
			Patterns: []string{
				`\(\s*[a-z]+\s*=\s*\*\s*\)`,
				`\)\s*\(\s*[|&]`,
				`\(\s*(cn|uid|objectclass)\s*=[^)]{0,64}[*|&]`,
			},
			Description: "LDAP filter metacharacters used to widen or short-circuit directory queries.",
		},
		{
			Name:       "nosql-injection",
			ThreatType: "NoSQL Injection",
			Severity:   waf.ThreatHigh,
			Patterns: []string{
				`\$(ne|gt|lt|gte|lte|regex|where|exists)\b`,
				`\{\s*("|')?\$where("|')?\s*:`,
				`\bthis\.[a-z_]+\s*==`,
			},
			Description: "MongoDB-style operator injection in query parameters and JSON bodies.",
		},
		{
			Name:       "ssti",
			ThreatType: "Server-Side Template Injection",
			Severity:   waf.ThreatHigh,
			Patterns: []string{
				`\{\{\s*(config|self|request|class|mro|subclasses)`,
				`\$\{[^}]{0,64}(runtime|class|exec)`,
				`__(class|mro|subclasses|globals|import)__`,
				`<%[^%]{0,64}%>`,
			},
			Description: "Template engine expression probes: Jinja2 internals, EL runtime access, dunder traversal.",
		},
		{
			Name:       "response-splitting",
			ThreatType: "HTTP Response Splitting",
			Severity:   waf.ThreatMedium,
			Patterns: []string{
				`(%0d|%0a|\r|\n)\s*(set-cookie|location|content-length)\s*:`,
				`(%0d%0a|\r\n).{0,32}http/1\.[01]`,
			},
			Description: "CRLF sequences attempting to inject headers into the response stream.",
		},
	}
}
