package threatintel

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Column positions in the URLhaus CSV export.
const (
	urlhausColID     = 0
	urlhausColURL    = 2
	urlhausColThreat = 5
)

// Parses the URLhaus zipped CSV export in to a map of URL to threat category (eg, "malware_download").
func ParseURLhausZip(data []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening threat feed archive: %w", err)
	}
	var csvFile *zip.File
	for _, f := range zr.File {
		if f.Name == "csv.txt" {
			csvFile = f
			break
		}
		if csvFile == nil && (strings.HasSuffix(f.Name, ".txt") || strings.HasSuffix(f.Name, ".csv")) {
			csvFile = f
		}
	}
	if csvFile == nil {
		return nil, errors.New("threat feed archive contains no CSV file")
	}
	rc, err := csvFile.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseURLhausCSV(rc)
}

func ParseURLhausCSV(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	out := make(map[string]string)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing threat feed: %w", err)
		}
		if len(row) <= urlhausColThreat {
			continue
		}
		// header row
		if strings.Contains(row[urlhausColID], "id") {
			continue
		}
		u := strings.TrimSpace(row[urlhausColURL])
		if u == "" {
			continue
		}
		out[u] = strings.TrimSpace(row[urlhausColThreat])
	}
	return out, nil
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// Parses a sitemap XML document in to the set of lower-cased paths it lists (without leading slash). These are first-party pages on the platform's own domain, which look like invite links but are not.
func ParseSitemap(data []byte) (map[string]bool, error) {
	var set sitemapURLSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing sitemap: %w", err)
	}
	out := make(map[string]bool, len(set.URLs))
	for _, u := range set.URLs {
		parsed, err := url.Parse(strings.TrimSpace(u.Loc))
		if err != nil {
			continue
		}
		p := strings.ToLower(strings.Trim(parsed.Path, "/"))
		if p != "" {
			out[p] = true
		}
	}
	return out, nil
}
