// Package ooxml reads the parts of an Office Open XML package (DOCX, PPTX)
// that the converters and metadata extractors need: the part index,
// relationship files, core properties and slide shape trees.
package ooxml

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Relationship types referenced by the readers.
const (
	RelTypeImage      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelTypeSlide      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelTypeNotesSlide = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	RelTypeChart      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart"
)

// ErrPartNotFound is returned when a named part is missing from the package.
var ErrPartNotFound = errors.New("ooxml: part not found")

// Package is an opened OOXML zip container.
type Package struct {
	zr    *zip.ReadCloser
	parts map[string]*zip.File
}

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationshipsXML struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []Relationship `xml:"Relationship"`
}

// Open opens the package at path. The caller must Close it.
func Open(path string) (*Package, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening OOXML package: %w", err)
	}

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[strings.TrimPrefix(f.Name, "/")] = f
	}
	return &Package{zr: zr, parts: parts}, nil
}

// Close releases the underlying zip reader.
func (p *Package) Close() error {
	if p.zr == nil {
		return nil
	}
	err := p.zr.Close()
	p.zr = nil
	return err
}

// Has reports whether the named part exists.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// ReadPart returns the full content of the named part.
func (p *Package) ReadPart(name string) ([]byte, error) {
	f := p.parts[name]
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", name, err)
	}
	return data, nil
}

// PartNames returns the sorted names of all parts starting with prefix.
func (p *Package) PartNames(prefix string) []string {
	var names []string
	for name := range p.parts {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Relationships parses the .rels part belonging to partName and returns the
// entries keyed by relationship ID. A missing .rels part yields an empty map.
func (p *Package) Relationships(partName string) (map[string]Relationship, error) {
	dir, file := path.Split(partName)
	relsName := dir + "_rels/" + file + ".rels"

	result := make(map[string]Relationship)
	if !p.Has(relsName) {
		return result, nil
	}

	data, err := p.ReadPart(relsName)
	if err != nil {
		return nil, err
	}

	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relsName, err)
	}
	for _, rel := range rels.Rels {
		result[rel.ID] = rel
	}
	return result, nil
}

// ResolveTarget turns a relationship target into an absolute part name.
// Targets are relative to the directory of the source part unless they
// start with "/".
func ResolveTarget(sourcePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(path.Dir(sourcePart), target))
}
