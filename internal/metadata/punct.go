package metadata

import "strings"

var punctuation = strings.NewReplacer(
	"“", "\"", // left double quotation mark
	"”", "\"",
	"„", "\"",
	"‟", "\"",
	"‘", "'",
	"’", "'",
	"‚", "'",
	"‛", "'",
	"′", "'", // prime
	"″", "\"",
	"‹", "<",
	"›", ">",
	"«", "<<",
	"»", ">>",
	"…", "...",
	"‐", "-", // hyphen
	"‑", "-",
	"‒", "-",
	"–", "-",
	"—", "-",
	"―", "-",
	"−", "-", // minus sign
	"⁄", "/",
	"\u00a0", " ", // no-break space
)

// ASCIIPunct replaces common Unicode punctuation with ASCII equivalents.
func ASCIIPunct(s string) string {
	return punctuation.Replace(s)
}
