package waf

// Decision denotes the WAF's verdict on a request.
type Decision int

const (
	_ Decision = iota
	// Pass means no rule had an opinion and the request should proceed.
	Pass

	// Allow means that the request should be allowed regardless of remaining rules
	Allow

	// Block means that the request should be blocked regardless of remaining rules
	Block
)

func (d Decision) String() string {
	switch d {
	case Pass:
		return "Pass"
	case Allow:
		return "Allow"
	case Block:
		return "Block"
	}
	return "Unknown"
}
