package clausewitz

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var normalizers = []struct {
	re   *regexp.Regexp
	repl string
}{
	// `name{` with no equals sign.
	{regexp.MustCompile(`([A-Za-z0-9_.\-]+){`), "${1}={"},
	{regexp.MustCompile(`=\s*{`), "={"},
	{regexp.MustCompile(`\n={`), "={"},
	// Anything after an opening brace moves to its own line.
	{regexp.MustCompile(`={(.)`), "={\n${1}"},
	// A closing brace trailing other content, as in `civics={ "a" }` or
	// `civics={"a"}`.
	{regexp.MustCompile(`(?m)([^\s{])[ \t]*}[ \t]*$`), "${1}\n}"},
	// Stray empty objects at the start of a line.
	{regexp.MustCompile(`(?m)^\s*{\s*}`), ""},
}

// Normalize rewrites free-form design text so that every `key={` opener ends
// its line and every closing brace can be found on a line of its own.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	for _, n := range normalizers {
		text = n.re.ReplaceAllString(text, n.repl)
	}
	return text
}

// Parse reads a normalised tree from r. A line holding only `}` closes the
// current object; reaching the end of input closes every open object.
func Parse(r io.Reader) (Object, error) {
	return parseObject(bufio.NewReader(r))
}

// ParseUserEmpires normalises and parses the contents of a design file.
func ParseUserEmpires(text string) (Object, error) {
	return Parse(strings.NewReader(Normalize(text)))
}

func parseObject(br *bufio.Reader) (Object, error) {
	obj := Object{}

	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read line: %w", err)
		}
		if raw == "" && err == io.EOF {
			return obj, nil
		}

		line := strings.TrimSpace(raw)
		switch {
		case line == "}":
			return obj, nil
		case line == "":
		default:
			entry, opens := parseLine(line)
			if opens {
				child, cerr := parseObject(br)
				if cerr != nil {
					return nil, cerr
				}
				entry.Value = ObjectValue(child)
			}
			obj = append(obj, entry)
		}

		if err == io.EOF {
			return obj, nil
		}
	}
}

// parseLine decodes a single trimmed line. opens is true for `key={`.
func parseLine(line string) (entry Entry, opens bool) {
	key, value, found := strings.Cut(line, "=")
	if !found {
		return Entry{Bare: true, Value: StringValue(strings.Trim(line, `"`))}, false
	}

	entry.Key = strings.Trim(strings.TrimSpace(key), `"`)
	value = strings.TrimSpace(value)

	switch value {
	case "{":
		return entry, true
	case "yes":
		entry.Value = BoolValue(true)
	case "no":
		entry.Value = BoolValue(false)
	default:
		entry.Value = StringValue(strings.Trim(value, `"`))
	}
	return entry, false
}
