package ooxml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const corePropsPart = "docProps/core.xml"

// CoreProperties holds the Dublin Core document properties stored in
// docProps/core.xml. Empty strings mean the property is absent.
type CoreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Revision       string `xml:"revision"`
	Category       string `xml:"category"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

// CoreProperties parses docProps/core.xml. A package without the part
// returns an empty, non-nil value.
func (p *Package) CoreProperties() (*CoreProperties, error) {
	props := &CoreProperties{}
	if !p.Has(corePropsPart) {
		return props, nil
	}

	data, err := p.ReadPart(corePropsPart)
	if err != nil {
		return nil, err
	}
	if err := xml.Unmarshal(data, props); err != nil {
		return nil, fmt.Errorf("parsing core properties: %w", err)
	}

	props.Title = strings.TrimSpace(props.Title)
	props.Subject = strings.TrimSpace(props.Subject)
	props.Creator = strings.TrimSpace(props.Creator)
	props.Keywords = strings.TrimSpace(props.Keywords)
	props.Description = strings.TrimSpace(props.Description)
	props.LastModifiedBy = strings.TrimSpace(props.LastModifiedBy)
	props.Revision = strings.TrimSpace(props.Revision)
	props.Category = strings.TrimSpace(props.Category)
	props.Created = strings.TrimSpace(props.Created)
	props.Modified = strings.TrimSpace(props.Modified)
	return props, nil
}

// Fields returns the non-empty properties keyed by the loader metadata
// vocabulary (author, title, subject, ...).
func (c *CoreProperties) Fields() map[string]string {
	out := make(map[string]string)
	add := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	add("author", c.Creator)
	add("title", c.Title)
	add("subject", c.Subject)
	add("keywords", c.Keywords)
	add("description", c.Description)
	add("created", c.Created)
	add("modified", c.Modified)
	add("last_modified_by", c.LastModifiedBy)
	add("category", c.Category)
	add("revision", c.Revision)
	return out
}
