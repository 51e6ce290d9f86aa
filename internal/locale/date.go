package locale

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrUnexpectedURLFormat is returned when no date can be derived from a link.
var ErrUnexpectedURLFormat = errors.New("unexpected URL format")

// ExtractDateFromURL derives the publication date (YYYY-MM-DD) from an
// article link. Supported shapes:
//
//	https://www.nytimes.com/2023/05/10/us/slug.html
//	https://www.nytimes.com/es/2023/05/10/espanol/slug.html
//	https://nytimes.com/es/2023/05/10/espanol/slug.html
//	https://cn.nytimes.com/world/20230510/slug/
func ExtractDateFromURL(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedURLFormat, link)
	}
	// Segments exclude the scheme and host, so segs[0] is the first path part.
	segs := strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/")

	var date string
	switch strings.ToLower(u.Hostname()) {
	case "www.nytimes.com", "nytimes.com":
		if len(segs) > 0 && segs[0] == "es" {
			date, err = joinParts(segs, 1)
		} else {
			date, err = joinParts(segs, 0)
		}
	case "cn.nytimes.com":
		date, err = compactDate(segs, 1)
	default:
		err = ErrUnexpectedURLFormat
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedURLFormat, link)
	}
	return date, nil
}

// joinParts reads year, month and day from three consecutive segments.
func joinParts(segs []string, at int) (string, error) {
	if len(segs) < at+3 {
		return "", ErrUnexpectedURLFormat
	}
	return validDate(segs[at] + "-" + segs[at+1] + "-" + segs[at+2])
}

// compactDate reads a YYYYMMDD segment.
func compactDate(segs []string, at int) (string, error) {
	if len(segs) <= at || len(segs[at]) != 8 {
		return "", ErrUnexpectedURLFormat
	}
	s := segs[at]
	return validDate(s[0:4] + "-" + s[4:6] + "-" + s[6:8])
}

func validDate(s string) (string, error) {
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return "", ErrUnexpectedURLFormat
	}
	return s, nil
}
