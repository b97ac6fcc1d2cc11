package normalize

import (
	"regexp"
	"strings"

	"github.com/sells-group/places-ingest/internal/model"
)

// dayPattern matches one "Day: [contents]" fragment.
var dayPattern = regexp.MustCompile(`([\p{L}\p{N}_]+):\s*\[(.*?)\]`)

// ParseHours extracts per-day intervals from an opening-hours string such as
// "Mon: [9:00-17:00], Tue: [closed]". A "closed" day (any case) yields an
// Hour with a nil open time and close time "Closed". Fragments whose contents
// do not split into exactly two times on "-" are skipped, as is anything that
// does not look like a day fragment. The returned hours have no PlaceID.
func ParseHours(s string) []model.Hour {
	if s == "" {
		return nil
	}

	var hours []model.Hour
	for _, m := range dayPattern.FindAllStringSubmatch(s, -1) {
		day, contents := m[1], m[2]

		if strings.EqualFold(contents, "closed") {
			hours = append(hours, model.Hour{Day: day, CloseTime: model.ClosedTime})
			continue
		}

		times := strings.Split(contents, "-")
		if len(times) != 2 {
			continue
		}
		open := strings.TrimSpace(times[0])
		hours = append(hours, model.Hour{
			Day:       day,
			OpenTime:  &open,
			CloseTime: strings.TrimSpace(times[1]),
		})
	}
	return hours
}
