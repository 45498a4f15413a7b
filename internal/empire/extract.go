package empire

import (
	"fmt"
	"strings"
)

// ethicPrefix marks a tag line. Any key that merely starts with it matches too.
const ethicPrefix = "ethic"

// Empire is the name and ethic tags pulled out of one block.
type Empire struct {
	Name   string   `json:"name"`
	Ethics []string `json:"ethics"`
}

// String renders the empire the way the upload picker labels it.
func (e Empire) String() string {
	return fmt.Sprintf("%s [%s]", e.Name, strings.Join(e.Ethics, ", "))
}

// Extract builds an Empire from a single block. It never fails: a block with
// no lines yields an empty name and a block without ethic lines yields an
// empty (non-nil) tag list.
func Extract(block string) Empire {
	lines := strings.Split(strings.TrimSpace(block), "\n")

	e := Empire{
		Name:   declarationName(lines[0]),
		Ethics: []string{},
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, ethicPrefix) {
			continue
		}
		e.Ethics = append(e.Ethics, ethicTag(line))
	}

	return e
}

// declarationName strips the trailing `{` and `=` of a `Name = {` line.
func declarationName(line string) string {
	name := strings.TrimSpace(line)
	for strings.HasSuffix(name, "{") || strings.HasSuffix(name, "=") {
		name = strings.TrimSpace(name[:len(name)-1])
	}
	return name
}

// ethicTag turns `ethic="ethic_fanatic_militarist"` into "fanatic militarist".
func ethicTag(line string) string {
	tag := strings.TrimPrefix(line, `ethic="`)
	tag = strings.TrimPrefix(tag, "ethic_")
	tag = strings.Replace(tag, "_", " ", 1)
	return strings.TrimSuffix(tag, `"`)
}

// Parse scans text and extracts every top-level block, in source order.
func Parse(text string) []Empire {
	empires := []Empire{}
	for span := range Scan(text) {
		empires = append(empires, Extract(span.Text(text)))
	}
	return empires
}
