package maxar

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// VisualHrefs returns the visual asset URLs of an event footprint
// FeatureCollection, in feature order. Features without one are skipped.
func VisualHrefs(geojson []byte) []string {
	var hrefs []string
	gjson.GetBytes(geojson, "features.#.properties.visual").ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			hrefs = append(hrefs, s)
		}
		return true
	})
	return hrefs
}

// KeyFromHref maps a bucket URL to its object key. Virtual-hosted,
// path-style and s3:// URLs are accepted.
func KeyFromHref(bucket, href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	p := strings.TrimPrefix(u.Path, "/")
	switch {
	case u.Scheme == "s3" && u.Host == bucket:
		return p, nil
	case strings.HasPrefix(u.Host, bucket+".s3."):
		return p, nil
	case strings.HasPrefix(u.Host, "s3.") || strings.HasPrefix(u.Host, "s3-"):
		if key, ok := strings.CutPrefix(p, bucket+"/"); ok {
			return key, nil
		}
	}
	return "", fmt.Errorf("href %q is not in bucket %s", href, bucket)
}
