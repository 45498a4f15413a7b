// Package modpack assembles a game mod that spawns a selection of shared
// empires, and packages it as a zip archive.
package modpack

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/talgya/empire-exchange/internal/clausewitz"
)

var (
	ErrInvalidPath   = errors.New("invalid path in mod pack")
	ErrDuplicateFile = errors.New("file already in mod pack")
)

// Pack describes a mod and holds its files in memory.
type Pack struct {
	Name             string
	ShortName        string
	Version          string
	SupportedVersion string

	tags         []string
	dependencies []string
	files        map[string]*bytes.Buffer
}

// New creates an empty mod pack.
func New(name, shortName, version string) *Pack {
	return &Pack{
		Name:             name,
		ShortName:        shortName,
		Version:          version,
		SupportedVersion: "*",
		files:            map[string]*bytes.Buffer{},
	}
}

// AddTag lists the mod under tag in mod browsers.
func (p *Pack) AddTag(tag string) {
	if !slices.Contains(p.tags, tag) {
		p.tags = append(p.tags, tag)
	}
}

// AddDependency tells the launcher another mod is required.
func (p *Pack) AddDependency(mod string) {
	if !slices.Contains(p.dependencies, mod) {
		p.dependencies = append(p.dependencies, mod)
	}
}

// File returns the in-memory writer for name, creating it on first use.
// Repeated calls return the same buffer so callers can append.
func (p *Pack) File(name string) (*bytes.Buffer, error) {
	clean, err := normalisePath(name)
	if err != nil {
		return nil, err
	}
	buf, ok := p.files[clean]
	if !ok {
		buf = &bytes.Buffer{}
		p.files[clean] = buf
	}
	return buf, nil
}

// AddFile adds a complete file. It fails if name is already present.
func (p *Pack) AddFile(name string, content []byte) error {
	clean, err := normalisePath(name)
	if err != nil {
		return err
	}
	if _, ok := p.files[clean]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFile, clean)
	}
	p.files[clean] = bytes.NewBuffer(content)
	return nil
}

// Metadata returns the descriptor the launcher reads.
func (p *Pack) Metadata() string {
	return clausewitz.Format(p.descriptor(), 0)
}

func (p *Pack) descriptor() clausewitz.Object {
	return clausewitz.Object{
		{Key: "name", Value: clausewitz.StringValue(p.Name)},
		{Key: "version", Value: clausewitz.StringValue(p.Version)},
		{Key: "path", Value: clausewitz.StringValue("mod/" + p.ShortName)},
		{Key: "supported_version", Value: clausewitz.StringValue(p.SupportedVersion)},
		{Key: "dependencies", Value: clausewitz.ObjectValue(literals(p.dependencies))},
		{Key: "tags", Value: clausewitz.ObjectValue(literals(p.tags))},
	}
}

// WriteZip writes `<short>.mod`, `<short>/descriptor.mod`, and every file
// under `<short>/`.
func (p *Pack) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	if err := zw.SetComment(fmt.Sprintf("%s v%s", p.Name, p.Version)); err != nil {
		return err
	}

	desc := p.descriptor()
	for _, name := range []string{p.ShortName + ".mod", path.Join(p.ShortName, "descriptor.mod")} {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if err := clausewitz.Write(f, desc, 0); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := writeEntry(zw, path.Join(p.ShortName, name), p.files[name].Bytes()); err != nil {
			return err
		}
	}

	return zw.Close()
}

func writeEntry(zw *zip.Writer, name string, content []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// normalisePath cleans a pack-relative path and rejects anything that would
// land outside the mod folder.
func normalisePath(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if name == "" || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return clean, nil
}

func literals(items []string) clausewitz.Object {
	obj := clausewitz.Object{}
	for _, s := range items {
		obj = append(obj, clausewitz.Entry{Bare: true, Value: clausewitz.StringValue(s)})
	}
	return obj
}
