package loader

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// alignmentDocumentType is the DocumentType of alignment XML files.
const alignmentDocumentType = "AlignmentDescription"

// xmlDocument mirrors the alignment-description XML layout:
//
//	<xml DocumentType="AlignmentDescription">
//	  <iov first="1:0" last="10:max">
//	    <det id="2014838784" sh_x="0.15"/>
//	    <rp id="3" rot_z="0.001"/>
//	  </iov>
//	</xml>
type xmlDocument struct {
	XMLName      xml.Name
	DocumentType string       `xml:"DocumentType,attr"`
	IOVs         []xmlIOV     `xml:"iov"`
	Dets         []xmlElement `xml:"det"`
	RPs          []xmlElement `xml:"rp"`
}

type xmlIOV struct {
	First string       `xml:"first,attr"`
	Last  string       `xml:"last,attr"`
	Dets  []xmlElement `xml:"det"`
	RPs   []xmlElement `xml:"rp"`
}

// xmlElement keeps attributes as text so that a bad number is reported
// against its attribute instead of as a generic decode failure.
type xmlElement struct {
	ID   string `xml:"id,attr"`
	ShX  string `xml:"sh_x,attr"`
	ShY  string `xml:"sh_y,attr"`
	ShZ  string `xml:"sh_z,attr"`
	RotX string `xml:"rot_x,attr"`
	RotY string `xml:"rot_y,attr"`
	RotZ string `xml:"rot_z,attr"`
}

func decodeXML(data []byte) (*document, error) {
	var x xmlDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&x); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parse XML: %v", err)}
	}

	if x.DocumentType != "" && x.DocumentType != alignmentDocumentType {
		return nil, &LoadError{
			Code:    ErrCodeParseFailed,
			Message: fmt.Sprintf("DocumentType %q is not %q", x.DocumentType, alignmentDocumentType),
		}
	}

	doc := &document{}
	var err error
	if doc.Sensors, err = convertXMLElements("det", x.Dets); err != nil {
		return nil, err
	}
	if doc.Pots, err = convertXMLElements("rp", x.RPs); err != nil {
		return nil, err
	}

	for i, xi := range x.IOVs {
		where := fmt.Sprintf("iov[%d].", i)
		v := iov{First: strings.TrimSpace(xi.First), Last: strings.TrimSpace(xi.Last)}
		if v.Sensors, err = convertXMLElements(where+"det", xi.Dets); err != nil {
			return nil, err
		}
		if v.Pots, err = convertXMLElements(where+"rp", xi.RPs); err != nil {
			return nil, err
		}
		doc.IOVs = append(doc.IOVs, v)
	}

	return doc, nil
}

func convertXMLElements(kind string, in []xmlElement) ([]element, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]element, 0, len(in))
	for i, x := range in {
		e, err := x.element(fmt.Sprintf("%s[%d]", kind, i))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (x xmlElement) element(where string) (element, error) {
	rawID := strings.TrimSpace(x.ID)
	if rawID == "" {
		return element{}, &LoadError{Code: ErrCodeInvalidElement, Message: where + ": id attribute is required"}
	}
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return element{}, &LoadError{
			Code:    ErrCodeInvalidElement,
			Message: fmt.Sprintf("%s: id %q is not an unsigned 32-bit integer", where, x.ID),
		}
	}
	id32 := uint32(id)
	e := element{ID: &id32}

	attrs := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"sh_x", x.ShX, &e.ShX},
		{"sh_y", x.ShY, &e.ShY},
		{"sh_z", x.ShZ, &e.ShZ},
		{"rot_x", x.RotX, &e.RotX},
		{"rot_y", x.RotY, &e.RotY},
		{"rot_z", x.RotZ, &e.RotZ},
	}
	for _, a := range attrs {
		raw := strings.TrimSpace(a.raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return element{}, &LoadError{
				Code:    ErrCodeInvalidElement,
				Message: fmt.Sprintf("%s: %s %q is not a number", where, a.name, a.raw),
			}
		}
		*a.dst = v
	}

	return e, nil
}
