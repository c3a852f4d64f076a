package awsapi

import (
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var agoR = regexp.MustCompile(`^-(\d+)([dh])$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Accepts "now", "-<n>d", "-<n>h", ISO datetime or Unix seconds
func StrToTime(input string) (time.Time, error) {
	if input == "now" {
		return time.Now(), nil
	}
	r := agoR.FindStringSubmatch(input)
	if r != nil {
		n, err := strconv.Atoi(r[1])
		if err != nil {
			return time.Time{}, err
		}
		if r[2] == "d" {
			return time.Now().AddDate(0, 0, -n), nil
		}
		return time.Now().Add(time.Duration(-n) * time.Hour), nil
	}
	if sec, err := strconv.ParseInt(input, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	return ParseISODatetime(input)
}

func ParseISODatetime(input string) (time.Time, error) {
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, input)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("could not parse %q as datetime", input)
}
