package kml

import "encoding/xml"

// container is any element that can hold placemarks: the kml root, Document or Folder.
// Documents and folders nest arbitrarily.
type container struct {
	Documents  []container `xml:"Document"`
	Folders    []container `xml:"Folder"`
	Placemarks []placemark `xml:"Placemark"`
	Styles     []style     `xml:"Style"`
	StyleMaps  []styleMap  `xml:"StyleMap"`
}

type placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description"`
	StyleURL     string        `xml:"styleUrl"`
	Style        *style        `xml:"Style"`
	ExtendedData *extendedData `xml:"ExtendedData"`
	Point        *coordinates  `xml:"Point"`
	LineString   *coordinates  `xml:"LineString"`
	Polygon      *polygon      `xml:"Polygon"`
	MultiGeom    *multiGeom    `xml:"MultiGeometry"`
}

type coordinates struct {
	Coordinates string `xml:"coordinates"`
}

type polygon struct {
	Outer coordinates   `xml:"outerBoundaryIs>LinearRing"`
	Inner []coordinates `xml:"innerBoundaryIs>LinearRing"`
}

type multiGeom struct {
	Points      []coordinates `xml:"Point"`
	LineStrings []coordinates `xml:"LineString"`
	Polygons    []polygon     `xml:"Polygon"`
	Multi       []multiGeom   `xml:"MultiGeometry"`
}

type style struct {
	ID        string     `xml:"id,attr"`
	LineStyle *lineStyle `xml:"LineStyle"`
	PolyStyle *polyStyle `xml:"PolyStyle"`
}

type lineStyle struct {
	Color string   `xml:"color"`
	Width *float64 `xml:"width"`
}

type polyStyle struct {
	Color   string `xml:"color"`
	Fill    *int   `xml:"fill"`
	Outline *int   `xml:"outline"`
}

type styleMap struct {
	ID    string `xml:"id,attr"`
	Pairs []struct {
		Key      string `xml:"key"`
		StyleURL string `xml:"styleUrl"`
	} `xml:"Pair"`
}

type extendedData struct {
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"Data"`
	SimpleData []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"SchemaData>SimpleData"`
}

// parseDocument decodes KML text into the container tree rooted at <kml>.
func parseDocument(text string) (*container, error) {
	var root container
	if err := xml.Unmarshal([]byte(text), &root); err != nil {
		return nil, err
	}
	return &root, nil
}

// walk visits every placemark in document order, depth first.
func (c *container) walk(fn func(*placemark)) {
	for i := range c.Placemarks {
		fn(&c.Placemarks[i])
	}
	for i := range c.Documents {
		c.Documents[i].walk(fn)
	}
	for i := range c.Folders {
		c.Folders[i].walk(fn)
	}
}

// collectStyles gathers every shared Style and StyleMap by id.
func (c *container) collectStyles(styles map[string]*style, maps map[string]*styleMap) {
	for i := range c.Styles {
		if id := c.Styles[i].ID; id != "" {
			styles[id] = &c.Styles[i]
		}
	}
	for i := range c.StyleMaps {
		if id := c.StyleMaps[i].ID; id != "" {
			maps[id] = &c.StyleMaps[i]
		}
	}
	for i := range c.Documents {
		c.Documents[i].collectStyles(styles, maps)
	}
	for i := range c.Folders {
		c.Folders[i].collectStyles(styles, maps)
	}
}
