package synth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
)

// Placeholder names understood in directive values.
const (
	PlaceholderContainerIP = "CONTAINER_IP"
)

// Substitutions is the closed set of runtime values a directive value may
// reference.
type Substitutions struct {
	ContainerIP string
}

func (s Substitutions) lookup(name string) (string, bool) {
	switch name {
	case PlaceholderContainerIP:
		return s.ContainerIP, s.ContainerIP != ""
	}
	return "", false
}

// {{, }} or {IDENT}
var tokenPattern = regexp.MustCompile(`\{\{|\}\}|\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Resolve replaces every {NAME} placeholder in value. "{{" and "}}" produce
// literal braces; braces around anything other than an identifier are left
// alone. An unknown or empty NAME fails with domain.ErrUnresolvedPlaceholder.
func Resolve(value string, subs Substitutions) (string, error) {
	var (
		sb   strings.Builder
		last int
	)
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(value, -1) {
		sb.WriteString(value[last:m[0]])
		last = m[1]

		switch token := value[m[0]:m[1]]; token {
		case "{{":
			sb.WriteByte('{')
		case "}}":
			sb.WriteByte('}')
		default:
			name := value[m[2]:m[3]]
			resolved, ok := subs.lookup(name)
			if !ok {
				return "", fmt.Errorf("%w: {%s} in %q", domain.ErrUnresolvedPlaceholder, name, value)
			}
			sb.WriteString(resolved)
		}
	}
	sb.WriteString(value[last:])
	return sb.String(), nil
}
