// Package gpx extracts raw coordinate pairs from GPX documents.
package gpx

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mekedron/coordextract/internal/domain"
)

const rootElement = "gpx"

var elementCategories = map[string]domain.Category{
	"wpt":   domain.CategoryWaypoint,
	"trkpt": domain.CategoryTrackpoint,
	"rtept": domain.CategoryRoutepoint,
}

// Parser reads GPX sources into categorized raw points.
type Parser struct{}

// NewParser creates a GPX parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses the GPX document stored at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (domain.Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() {
		_ = file.Close()
	}()

	track, err := p.parse(ctx, bufio.NewReader(file), path)
	if err != nil {
		return domain.Track{}, err
	}
	return track, nil
}

// Parse parses a GPX document from r.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (domain.Track, error) {
	return p.parse(ctx, r, "")
}

type openPoint struct {
	category domain.Category
	raw      domain.RawPoint
	depth    int
}

func (p *Parser) parse(_ context.Context, r io.Reader, path string) (domain.Track, error) {
	src := &trackingReader{r: r}
	dec := xml.NewDecoder(src)

	var (
		track   domain.Track
		current *openPoint
		inName  bool
		name    strings.Builder
		depth   int
		sawRoot bool
	)
	fail := func(reason string, cause error) (domain.Track, error) {
		line, _ := dec.InputPos()
		return domain.Track{}, &ParseError{Path: path, Line: line, Reason: reason, Cause: cause}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if src.err != nil {
				return domain.Track{}, fmt.Errorf("%w: %w", ErrRead, src.err)
			}
			return fail("malformed xml", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if t.Name.Local != rootElement {
					return fail(fmt.Sprintf("root element is <%s>, want <%s>", t.Name.Local, rootElement), nil)
				}
				sawRoot = true
				continue
			}
			if current != nil {
				if t.Name.Local == "name" && depth == current.depth+1 {
					inName = true
					name.Reset()
				}
				continue
			}
			category, ok := elementCategories[t.Name.Local]
			if !ok {
				continue
			}
			lat, hasLat := attr(t, "lat")
			lon, hasLon := attr(t, "lon")
			if !hasLat || !hasLon {
				return fail(fmt.Sprintf("<%s> is missing lat/lon attributes", t.Name.Local), nil)
			}
			line, _ := dec.InputPos()
			current = &openPoint{
				category: category,
				raw:      domain.RawPoint{Lat: lat, Lon: lon, Line: line},
				depth:    depth,
			}
		case xml.CharData:
			if inName {
				name.Write(t)
			}
		case xml.EndElement:
			if current != nil {
				if inName && depth == current.depth+1 {
					if text := strings.TrimSpace(name.String()); text != "" {
						current.raw.Name = &text
					}
					inName = false
				}
				if depth == current.depth {
					track.Append(current.category, current.raw)
					current = nil
				}
			}
			depth--
		}
	}

	if !sawRoot {
		return fail(fmt.Sprintf("missing <%s> root element", rootElement), nil)
	}
	return track, nil
}

func attr(el xml.StartElement, local string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// trackingReader remembers the first non-EOF read failure so IO problems are
// not reported as malformed documents.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}
