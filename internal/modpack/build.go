package modpack

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/go-wordwrap"

	"github.com/talgya/empire-exchange/internal/persistence"
)

const bioWidth = 60

// stockCountryFiles are the game's own prescripted empire files. The pack
// ships them empty so only the selected empires spawn.
var stockCountryFiles = []string{
	"00_top_countries",
	"88_megacorp_prescripted_countries",
	"89_humanoids_prescripted_countries",
	"90_syndaw_prescripted_countries",
	"91_utopia_prescripted_countries",
	"92_plantoids_prescripted_countries",
	"93_lithoids_prescripted_countries",
	"99_prescripted_countries",
}

// Options name and version the generated mod.
type Options struct {
	Name             string
	ShortName        string
	Version          string
	SupportedVersion string
	Tags             []string
	Dependencies     []string
	Thumbnail        []byte // PNG; omitted when empty
}

// Build creates a pack spawning recs, with a species.txt listing each
// empire's author and bio.
func Build(opts Options, recs []persistence.EmpireRecord) (*Pack, error) {
	p := New(opts.Name, opts.ShortName, opts.Version)
	if opts.SupportedVersion != "" {
		p.SupportedVersion = opts.SupportedVersion
	}
	for _, tag := range opts.Tags {
		p.AddTag(tag)
	}
	for _, dep := range opts.Dependencies {
		p.AddDependency(dep)
	}
	if len(opts.Thumbnail) > 0 {
		if err := p.AddFile("thumbnail.png", opts.Thumbnail); err != nil {
			return nil, err
		}
	}

	bios, err := p.File("species.txt")
	if err != nil {
		return nil, err
	}

	for _, r := range recs {
		countries, err := p.File(fmt.Sprintf("prescripted_countries/10_%s.txt", r.Author))
		if err != nil {
			return nil, fmt.Errorf("empire %s by %s: %w", r.Name, r.Author, err)
		}
		countries.WriteString(r.Body)

		header := fmt.Sprintf("%s by %s", r.Name, r.Author)
		bios.WriteString(header + "\n")
		bios.WriteString(strings.Repeat("=", utf8.RuneCountInString(header)) + "\n\n")
		if r.Bio != "" {
			bios.WriteString(wordwrap.WrapString(r.Bio, bioWidth))
		} else {
			bios.WriteString("[No Description Provided]")
		}
		bios.WriteString("\n\n")
	}

	for _, name := range stockCountryFiles {
		if _, err := p.File("prescripted_countries/" + name + ".txt"); err != nil {
			return nil, err
		}
	}

	return p, nil
}
