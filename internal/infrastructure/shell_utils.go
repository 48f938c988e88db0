package infrastructure

import "strings"

// ShellEscape escapes a string for safe display in a shell command line.
// Used for logging only; exec.Command passes arguments directly and needs
// no quoting.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\r'\"$`\\!*?[](){}|;<>&~#%") {
		return s
	}

	// Single-quote everything; embedded single quotes become '"'"'
	var b strings.Builder
	b.WriteString("'")
	for _, c := range s {
		if c == '\'' {
			b.WriteString(`'"'"'`)
		} else {
			b.WriteRune(c)
		}
	}
	b.WriteString("'")
	return b.String()
}

// ShellEscapeCommand creates a shell-safe command line string for logging
func ShellEscapeCommand(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, ShellEscape(binary))
	for _, arg := range args {
		parts = append(parts, ShellEscape(arg))
	}
	return strings.Join(parts, " ")
}
