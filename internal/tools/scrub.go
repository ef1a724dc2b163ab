package tools

import "regexp"

// credentialPatterns matches common secret shapes that might leak into tool
// output (API keys, bearer tokens, AWS access keys, private key blocks)
// before it's handed back to the LLM or the user.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{16,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*['"]?[A-Za-z0-9._-]{12,}['"]?`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`),
}

const scrubPlaceholder = "[REDACTED]"

// ScrubCredentials replaces substrings of text that look like credentials
// with a placeholder. Best-effort — it is not a substitute for not logging
// secrets in the first place.
func ScrubCredentials(text string) string {
	for _, re := range credentialPatterns {
		text = re.ReplaceAllString(text, scrubPlaceholder)
	}
	return text
}
