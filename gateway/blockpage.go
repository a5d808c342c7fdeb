package gateway

import (
	"html/template"
	"net/http"

	"wafgate/waf"
)

var blockPageTemplate = template.Must(template.New("blockpage").Parse(`<!DOCTYPE html>
<html>
<head><title>403 Forbidden</title></head>
<body>
<h1>Request blocked</h1>
<p>This request was blocked by the web application firewall.</p>
<table>
<tr><td>Rule</td><td>{{.RuleName}}</td></tr>
<tr><td>Threat type</td><td>{{.ThreatType}}</td></tr>
<tr><td>Severity</td><td>{{.Severity}}</td></tr>
<tr><td>Details</td><td>{{.Details}}</td></tr>
</table>
</body>
</html>
`))

// renderBlockPage writes the 403 block page with the rule metadata.
func renderBlockPage(w http.ResponseWriter, match waf.RuleMatch) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	blockPageTemplate.Execute(w, match)
}
