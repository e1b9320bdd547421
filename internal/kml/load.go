// Package kml turns uploaded KML and KMZ files into go-geom features and the compact
// per-site shape summary stored on the shared document.
package kml

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Lllllllleong/mwmap/internal/apperr"
)

// IsKMZ reports whether name looks like a zipped KML archive.
func IsKMZ(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".kmz")
}

// Accepts reports whether name carries one of the accepted upload extensions.
func Accepts(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".kml" || ext == ".kmz"
}

// LoadText returns the KML document text of an upload. KMZ archives are searched for
// doc.kml first, then for the first *.kml entry in archive order. Anything else is
// taken to be KML text already.
func LoadText(name string, data []byte) (string, error) {
	if name == "" {
		return "", apperr.New(apperr.ErrValidation, "파일 이름이 없습니다.")
	}
	if !IsKMZ(name) {
		return string(data), nil
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Wrap(apperr.ErrMalformedInput, eris.Wrap(err, "kml: open kmz"), "KMZ 파일을 열 수 없습니다.")
	}

	entry := findKMLEntry(zr.File)
	if entry == nil {
		return "", apperr.New(apperr.ErrMalformedInput, "KMZ 안에서 KML 파일을 찾을 수 없습니다.")
	}

	rc, err := entry.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.ErrMalformedInput, eris.Wrapf(err, "kml: open %s", entry.Name), "KMZ 안의 KML 파일을 읽을 수 없습니다.")
	}
	defer rc.Close()

	text, err := io.ReadAll(rc)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrMalformedInput, eris.Wrapf(err, "kml: read %s", entry.Name), "KMZ 안의 KML 파일을 읽을 수 없습니다.")
	}
	return string(text), nil
}

// Parse loads an upload and converts it in one step.
func Parse(name string, data []byte) (*geojson.FeatureCollection, error) {
	text, err := LoadText(name, data)
	if err != nil {
		return nil, err
	}
	return ToGeoJSON(text)
}

func findKMLEntry(files []*zip.File) *zip.File {
	var fallback *zip.File
	for _, f := range files {
		if f.Name == "doc.kml" {
			return f
		}
		if fallback == nil && !f.FileInfo().IsDir() && strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			fallback = f
		}
	}
	return fallback
}
